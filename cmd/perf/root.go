package perf

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/mockbody/cmd/util"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	perfConfig = loadConfig{}

	// PerfCmd runs a load test against a running mock server
	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Load test a running mock server",
		Long: util.WrapString(`Sends requests to a running mock server and reports latency, throughput and how often each payload was served. ` +
			`With --replay-check every seen payload id is fetched again from the replay route and compared with the served body.`),
		Example: `  mockbody perf --url http://localhost:8080/ --requests 100000 --threads 32
  mockbody perf --url http://localhost:8080/ --duration 30s --rate 5000 --csv results.csv`,
		PreRunE: processPerfConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	key := "url"
	PerfCmd.Flags().String(key, "http://localhost:8080/", util.WrapString("URL the requests are sent to"))
	key = "admin-prefix"
	PerfCmd.Flags().String(key, "/_mock", util.WrapString("Admin prefix of the server, used for the replay check"))
	key = "method"
	PerfCmd.Flags().String(key, http.MethodGet, util.WrapString("HTTP method of the requests"))
	key = "requests"
	PerfCmd.Flags().Int(key, 10000, util.WrapString("Total number of requests (0 = until --duration is over)"))
	key = "duration"
	PerfCmd.Flags().Duration(key, 0, util.WrapString("Maximum duration of the test (0 = until all requests are sent)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent workers"))
	key = "rate"
	PerfCmd.Flags().Float64(key, 0, util.WrapString("Maximum requests per second over all workers (0 = unlimited)"))
	key = "timeout"
	PerfCmd.Flags().Int(key, 10, util.WrapString("The timeout of a single request in seconds"))
	key = "replay-check"
	PerfCmd.Flags().Bool(key, false, util.WrapString("Replay every seen payload id and compare it with the served body"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	target := viper.GetString("url")
	base, err := baseURL(target)
	if err != nil {
		return err
	}

	perfConfig = loadConfig{
		Target:      target,
		Method:      strings.ToUpper(viper.GetString("method")),
		Requests:    viper.GetInt("requests"),
		Duration:    viper.GetDuration("duration"),
		Threads:     viper.GetInt("threads"),
		Rate:        viper.GetFloat64("rate"),
		AdminURL:    base + viper.GetString("admin-prefix"),
		ReplayCheck: viper.GetBool("replay-check"),
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for mock servers")
	fmt.Println()
	fmt.Printf("Target:   %s %s\n", perfConfig.Method, perfConfig.Target)
	fmt.Printf("Threads:  %d\n", perfConfig.Threads)
	if perfConfig.Requests > 0 {
		fmt.Printf("Requests: %s\n", humanize.Comma(int64(perfConfig.Requests)))
	}
	if perfConfig.Duration > 0 {
		fmt.Printf("Duration: %s\n", perfConfig.Duration)
	}
	if perfConfig.Rate > 0 {
		fmt.Printf("Rate:     %.0f req/s\n", perfConfig.Rate)
	}
	fmt.Println()
	fmt.Println("starting test...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{
		Timeout: time.Duration(viper.GetInt("timeout")) * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        perfConfig.Threads,
			MaxIdleConnsPerHost: perfConfig.Threads,
			IdleConnTimeout:     30 * time.Second,
		},
	}
	defer client.CloseIdleConnections()

	result, err := runLoad(ctx, perfConfig, client)
	if result != nil {
		printResult(result)
	}
	if err != nil {
		return err
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, result); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if len(result.ReplayMismatches) > 0 {
		return fmt.Errorf("%d replayed payloads differ from the served bodies", len(result.ReplayMismatches))
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// baseURL strips the path of a URL (http://host:port/path -> http://host:port)
func baseURL(target string) (string, error) {
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok || rest == "" {
		return "", fmt.Errorf("invalid url %q", target)
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host, nil
}

// printResult prints the result of a load test in a formatted way
func printResult(r *loadResult) {
	ps := r.Timer.Percentiles([]float64{0.5, 0.95, 0.99})
	throughput := float64(r.Timer.Count()) / r.Elapsed.Seconds()

	fmt.Println()
	fmt.Printf("%-20s%s ok, %s failed in %s\n", "requests", humanize.Comma(r.Timer.Count()), humanize.Comma(r.Errors.Count()), r.Elapsed.Round(time.Millisecond))
	fmt.Printf("%-20s%.0f req/s (%s/s)\n", "throughput", throughput, humanize.Bytes(uint64(float64(r.Bytes.Count())/r.Elapsed.Seconds())))
	fmt.Printf("%-20smean %s  p50 %s  p95 %s  p99 %s  max %s\n", "latency",
		time.Duration(r.Timer.Mean()), time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]), time.Duration(r.Timer.Max()))

	fmt.Println()
	d := newDistribution(r.Payloads)
	fmt.Printf("%-20s%d distinct, min %.0f, max %.0f, stddev %.2f, quality %.3f\n", "payloads", len(r.Payloads), d.Min, d.Max, d.StdDev, d.Quality)
	for _, id := range r.PayloadIDs() {
		fmt.Printf("  %-18d%s\n", id, humanize.Comma(r.Payloads[id]))
	}
	if r.Fair() {
		fmt.Printf("%-20sok (counts differ by at most one)\n", "fairness")
	} else {
		fmt.Printf("%-20snot fair (other clients may have been served in between)\n", "fairness")
	}

	if r.ReplayChecked > 0 {
		fmt.Printf("%-20s%d checked, %d mismatches\n", "replay", r.ReplayChecked, len(r.ReplayMismatches))
	}
}

// writeResultsToCSV writes the payload distribution and the summary to a CSV file
func writeResultsToCSV(csvPath string, r *loadResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

XX, "Count",
		"Requests", "Errors", "ElapsedMs", "MeanNs", "P99Ns", "DistributionQuality",
		"Target", "Method", "Threads", "Rate",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	p99 := r.Timer.Percentile(0.99)
	quality := newDistribution(r.Payloads).Quality
	for _, id := range r.PayloadIDs() {
		row := []string{
			strconv.FormatInt(id, 10),
			strconv.FormatInt(r.Payloads[id], 10),
			strconv.FormatInt(r.Timer.Count(), 10),
			strconv.FormatInt(r.Errors.Count(), 10),
			strconv.FormatInt(r.Elapsed.Milliseconds(), 10),
			fmt.Sprintf("%.0f", r.Timer.Mean()),
			fmt.Sprintf("%.0f", p99),
			fmt.Sprintf("%.3f", quality),
			perfConfig.Target,
			perfConfig.Method,
			strconv.Itoa(perfConfig.Threads),
			fmt.Sprintf("%.0f", perfConfig.Rate),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for payload %d: %v", id, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
