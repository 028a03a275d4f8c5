package cmd

import (
	"fmt"
	"github.com/ValentinKolb/mockbody/cmd/perf"
	"github.com/ValentinKolb/mockbody/cmd/serve"
	"github.com/ValentinKolb/mockbody/cmd/served"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "mockbody",
		Short: "round-robin mock server for load tests",
		Long: fmt.Sprintf(`mockbody (v%s)

A mock HTTP server for load tests. It answers every request with the next
payload of a fixed set in round-robin order, tags each response with the
id of its payload and can replay any payload by id.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mockbody",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mockbody v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(served.ServedCommands)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
