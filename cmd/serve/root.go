package serve

import (
	cmdUtil "github.com/ValentinKolb/mockbody/cmd/util"
	"github.com/ValentinKolb/mockbody/lib/handle"
	"github.com/ValentinKolb/mockbody/server"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the mock server",
		Long: `Start the mock server. Every request outside the admin prefix is answered with the next payload in round-robin order.

The configuration can be set via command line flags or environment variables. The format of the environment variables is MOCKBODY_<flag> (e.g. MOCKBODY_BODY_FILE=bodies.jsonl)`,
		Example: `  mockbody serve --body-file bodies.jsonl --split-lines
  mockbody serve --body '{"status":"ok"}' --transport fasthttp
  mockbody serve --body-file bodies.jsonl --split-lines --served-log sqlite`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	key := "body"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Inline payload. With --split-lines every line is its own payload"))

	key = "body-file"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("File the payload is read from. With --split-lines every line is its own payload"))

	key = "split-lines"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Install one payload per line of the body (a CRLF line ending counts as one terminator)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:8080, unix:/tmp/mockbody.sock)"))

	key = "transport"
	ServeCmd.PersistentFlags().String(key, string(common.TransportHTTP), cmdUtil.WrapString("The transport to use (http, fasthttp)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("Read and write timeout of a connection in seconds"))

	key = "admin-prefix"
	ServeCmd.PersistentFlags().String(key, "/_mock", cmdUtil.WrapString("Path prefix of the admin routes (healthz, metrics, payloads/{id}, served/{requestId})"))

	key = "lookup-policy"
	ServeCmd.PersistentFlags().String(key, string(common.PolicySoft), cmdUtil.WrapString("soft: answer with an empty body if no payload can be served, strict: answer 503 without payloads and 404 for unknown payload ids"))

	key = "served-log-batch"
	ServeCmd.PersistentFlags().Int(key, 256, cmdUtil.WrapString("Maximum number of served entries written to the served log at once"))

	key = "served-log-flush-ms"
	ServeCmd.PersistentFlags().Int64(key, 200, cmdUtil.WrapString("Maximum time in milliseconds a served entry waits before it is written"))

	cmdUtil.SetupServedLogFlags(ServeCmd)

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = common.TransportType(strings.ToLower(viper.GetString("transport")))
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.AdminPrefix = viper.GetString("admin-prefix")
	serveCmdConfig.LookupPolicy = common.LookupPolicy(strings.ToLower(viper.GetString("lookup-policy")))
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	serveCmdConfig.Source = common.SourceConfig{
		Body:       viper.GetString("body"),
		File:       viper.GetString("body-file"),
		SplitLines: viper.GetBool("split-lines"),
	}

	serveCmdConfig.ServedLog = cmdUtil.GetServedLogConfig()

	return serveCmdConfig.Validate()
}

// run starts the mock server
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetTransport(serveCmdConfig.Transport)
	if err != nil {
		return err
	}

	serv := server.NewMockServer(
		*serveCmdConfig,
		t,
		handle.Global(),
	)

	return serv.Serve()
}
