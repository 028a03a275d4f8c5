package served

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/ValentinKolb/mockbody/server"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"io"
	"os"
	"time"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [request-id]",
		Short: "Shows the payload that was served for a request id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, found, err := servedLog.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no payload was served for request id %s", args[0])
			}
			return printEntries(cmd, os.Stdout, []servedlog.Entry{entry})
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists the most recent served entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := servedLog.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printEntries(cmd, os.Stdout, entries)
		},
	}
)

func init() {
	listCmd.Flags().Int("limit", 20, "Maximum number of entries (0 = all)")
}

// printEntries writes entries as JSON or as a table, depending on --json
func printEntries(cmd *cobra.Command, w io.Writer, entries []servedlog.Entry) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		renderTable(w, entries)
		return nil
	}

	docs := make([]server.ServedResponse, len(entries))
	for i, e := range entries {
		docs[i] = server.NewServedResponse(e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// renderTable prints entries as an aligned table without borders
func renderTable(w io.Writer, entries []servedlog.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Request ID", "Payload", "Method", "Path", "Served At"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, e := range entries {
		table.Append([]string{
			e.RequestID,
			e.PayloadID.String(),
			e.Method,
			e.Path,
			e.ServedAt.Local().Format(time.RFC3339),
		})
	}
	table.Render()
}
