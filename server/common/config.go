package common

import (
	"fmt"
	"github.com/ValentinKolb/mockbody/lib/servedlog"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Enumerations
// --------------------------------------------------------------------------

type TransportType string

const (
	TransportHTTP     TransportType = "http"
	TransportFastHTTP TransportType = "fasthttp"
)

// LookupPolicy decides how the server answers when no payload can be served
type LookupPolicy string

const (
	// PolicySoft answers with an empty body (and payload id 0) instead of an error
	PolicySoft LookupPolicy = "soft"
	// PolicyStrict answers 503 if no payloads are installed and 404 for unknown payload ids
	PolicyStrict LookupPolicy = "strict"
)

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// SourceConfig describes where the payloads are loaded from
type SourceConfig struct {
	// Body is an inline payload (or the lines of it, see SplitLines)
	Body string
	// File is the path of a file holding the payload(s)
	File string
	// SplitLines installs one payload per line instead of one payload in total
	SplitLines bool
}

// ServedLogConfig configures the persistence of served entries
type ServedLogConfig struct {
	Backend         servedlog.Backend
	Path            string // sqlite file or pebble directory
	DSN             string // postgres only
	BatchSize       int
	FlushIntervalMs int64
}

// FlushInterval returns the flush interval as a duration
func (c *ServedLogConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// Enabled reports whether served entries are persisted
func (c *ServedLogConfig) Enabled() bool {
	return c.Backend != "" && c.Backend != servedlog.BackendNone
}

// ServerConfig holds all configuration parameters of the mock server.
type ServerConfig struct {
	// HTTP settings
	Endpoint      string
	Transport     TransportType
	TimeoutSecond int64
	AdminPrefix   string
	LookupPolicy  LookupPolicy

	// Payloads
	Source SourceConfig

	// Served log
	ServedLog ServedLogConfig

	// Logging configuration
	LogLevel string
}

// Timeout returns the read/write timeout as a duration
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// Validate checks the configuration for inconsistent settings
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}

	switch c.Transport {
	case TransportHTTP, TransportFastHTTP:
	default:
		return fmt.Errorf("unknown transport %q, must be one of http, fasthttp", c.Transport)
	}

	if c.Transport == TransportFastHTTP && strings.HasPrefix(c.Endpoint, "unix:") {
		return fmt.Errorf("unix socket endpoints are only supported by the http transport")
	}

	switch c.LookupPolicy {
	case PolicySoft, PolicyStrict:
	default:
		return fmt.Errorf("unknown lookup policy %q, must be one of soft, strict", c.LookupPolicy)
	}

	if c.AdminPrefix == "" || !strings.HasPrefix(c.AdminPrefix, "/") || strings.HasSuffix(c.AdminPrefix, "/") {
		return fmt.Errorf("admin prefix %q must start with / and must not end with /", c.AdminPrefix)
	}

	if c.Source.Body != "" && c.Source.File != "" {
		return fmt.Errorf("body and body file are mutually exclusive")
	}

	switch c.ServedLog.Backend {
	case "", servedlog.BackendNone, servedlog.BackendSQLite:
	case servedlog.BackendPostgres:
		if c.ServedLog.DSN == "" {
			return fmt.Errorf("served log backend postgres requires a dsn")
		}
	case servedlog.BackendPebble:
		if c.ServedLog.Path == "" {
			return fmt.Errorf("served log backend pebble requires a path")
		}
	default:
		return fmt.Errorf("unknown served log backend %q, must be one of none, sqlite, postgres, pebble", c.ServedLog.Backend)
	}

	if c.ServedLog.BatchSize < 0 || c.ServedLog.FlushIntervalMs < 0 {
		return fmt.Errorf("served log batch size and flush interval must not be negative")
	}

	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Mock Server")
	addField("Endpoint", c.Endpoint)
	addField("Transport", string(c.Transport))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Admin Prefix", c.AdminPrefix)
	addField("Lookup Policy", string(c.LookupPolicy))

	addSection("Payloads")
	switch {
	case c.Source.File != "":
		addField("Source", "file "+c.Source.File)
	case c.Source.Body != "":
		addField("Source", "inline")
	default:
		addField("Source", "none (empty responses)")
	}
	addField("Split Lines", fmt.Sprintf("%t", c.Source.SplitLines))

	addSection("Served Log")
	if c.ServedLog.Enabled() {
		addField("Backend", string(c.ServedLog.Backend))
		switch c.ServedLog.Backend {
		case servedlog.BackendPostgres:
			addField("DSN", redactDSN(c.ServedLog.DSN))
		default:
			addField("Path", c.ServedLog.Path)
		}
		addField("Batch Size", fmt.Sprintf("%d", c.ServedLog.BatchSize))
		addField("Flush Interval", fmt.Sprintf("%d ms", c.ServedLog.FlushIntervalMs))
	} else {
		addField("Backend", string(servedlog.BackendNone))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// redactDSN hides the password of a key/value postgres connection string
func redactDSN(dsn string) string {
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}
