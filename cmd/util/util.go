package util

import (
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/ValentinKolb/mockbody/server/transport"
	"github.com/ValentinKolb/mockbody/server/transport/fasthttp"
	"github.com/ValentinKolb/mockbody/server/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (MOCKBODY_<FLAG>)
	EnvPrefix = "mockbody"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read MOCKBODY_* environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Served log flags (shared by serve and served)
// --------------------------------------------------------------------------

// SetupServedLogFlags adds the served log flags to a command
func SetupServedLogFlags(cmd *cobra.Command) {
	key := "served-log"
	cmd.PersistentFlags().String(key, string(servedlog.BackendNone), WrapString("Backend that records which payload was served for which request id (none, sqlite, postgres, pebble)"))

	key = "served-log-path"
	cmd.PersistentFlags().String(key, "mockbody-served.db", WrapString("Path of the sqlite database file or of the pebble directory"))

	key = "served-log-dsn"
	cmd.PersistentFlags().String(key, "", WrapString("PostgreSQL connection string (e.g. 'host=localhost user=mock password=mock dbname=mock sslmode=disable')"))
}

// GetServedLogConfig reads the served log configuration from viper
func GetServedLogConfig() common.ServedLogConfig {
	return common.ServedLogConfig{
		Backend:         servedlog.Backend(strings.ToLower(viper.GetString("served-log"))),
		Path:            viper.GetString("served-log-path"),
		DSN:             viper.GetString("served-log-dsn"),
		BatchSize:       viper.GetInt("served-log-batch"),
		FlushIntervalMs: viper.GetInt64("served-log-flush-ms"),
	}
}

// --------------------------------------------------------------------------
// Transport
// --------------------------------------------------------------------------

// GetTransport creates the server transport of the given name
func GetTransport(name common.TransportType) (transport.IServerTransport, error) {
	switch name {
	case common.TransportHTTP:
		return http.NewHttpServerTransport(), nil
	case common.TransportFastHTTP:
		return fasthttp.NewFastHttpServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}
