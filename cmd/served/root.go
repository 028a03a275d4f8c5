package served

import (
	"fmt"
	"github.com/ValentinKolb/mockbody/cmd/util"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/ValentinKolb/mockbody/server"
	"github.com/ValentinKolb/mockbody/server/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	servedLog servedlog.IServedLog

	// ServedCommands represents the served log command group
	ServedCommands = &cobra.Command{
		Use:   "served",
		Short: "Inspect which payload was served for which request",
		Long: util.WrapString(`Read the served log written by 'mockbody serve --served-log ...'. ` +
			`Use the same served log flags (or MOCKBODY_SERVED_LOG* environment variables) as the server.`),
		PersistentPreRunE:  openServedLog,
		PersistentPostRunE: closeServedLog,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupServedLogFlags(ServedCommands)
	ServedCommands.PersistentFlags().Bool("json", false, util.WrapString("Print JSON instead of a table"))
	ServedCommands.PersistentFlags().String("log-level", "warning", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	ServedCommands.AddCommand(getCmd)
	ServedCommands.AddCommand(listCmd)
}

// openServedLog opens the configured served log backend
func openServedLog(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers(common.ServerConfig{LogLevel: viper.GetString("log-level")}); err != nil {
		return err
	}

	config := util.GetServedLogConfig()
	if !config.Enabled() {
		return fmt.Errorf("no served log configured, use --served-log (sqlite, postgres, pebble)")
	}

	var err error
	servedLog, err = server.OpenServedLog(config)
	return err
}

func closeServedLog(_ *cobra.Command, _ []string) error {
	if servedLog == nil {
		return nil
	}
	return servedLog.Close()
}
