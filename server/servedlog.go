package server

import (
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"github.com/ValentinKolb/mockbody/lib/servedlog/pebblestore"
	"github.com/ValentinKolb/mockbody/lib/servedlog/sqlstore"
	"github.com/ValentinKolb/mockbody/server/common"
)

// OpenServedLog opens the backend described by the configuration.
// It returns nil without an error if the served log is disabled.
func OpenServedLog(config common.ServedLogConfig) (servedlog.IServedLog, error) {
	switch config.Backend {
	case "", servedlog.BackendNone:
		return nil, nil
	case servedlog.BackendSQLite:
		return sqlstore.New(&sqlstore.Config{Type: sqlstore.DatabaseTypeSQLite, Path: config.Path})
	case servedlog.BackendPostgres:
		return sqlstore.New(&sqlstore.Config{Type: sqlstore.DatabaseTypePostgres, DSN: config.DSN})
	case servedlog.BackendPebble:
		return pebblestore.New(config.Path)
	default:
		return nil, fmt.Errorf("unknown served log backend %q", config.Backend)
	}
}
