// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends for the tabular store.
const (
	BackendSheets   = "sheets"
	BackendWorkbook = "xlsx"
)

// Config holds the application configuration
type Config struct {
	Server        ServerConfig
	Sheet         SheetConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
}

type SheetConfig struct {
	Backend          string
	SpreadsheetID    string
	CredentialsFile  string
	WorkbookPath     string
	SummaryTab       string
	ViewIgnoreTabs   []string
	AppendIgnoreTabs []string
	RoleTableFile    string
}

type DatabaseConfig struct {
	URL string
}

// DSN returns the connection string; empty disables the journal.
func (d DatabaseConfig) DSN() string {
	return d.URL
}

type CacheConfig struct {
	TTL time.Duration
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

type ProfilingConfig struct {
	Enabled bool
	Port    int
}

// Defaults matching the layout of the fund workbook
var (
	DefaultSummaryTab       = "總和"
	DefaultViewIgnoreTabs   = []string{"總和", "配息", "工作表1", "Lists", "Dropdowns"}
	DefaultAppendIgnoreTabs = []string{"總和", "配息", "工作表1"}
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}

	cfg := &Config{
		Server: ServerConfig{
			Host:               env.str("SERVER_HOST", "0.0.0.0"),
			Port:               env.integer("SERVER_PORT", 8080),
			RateLimitPerSecond: env.integer("RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     env.integer("RATE_LIMIT_BURST", 40),
		},
		Sheet: SheetConfig{
			Backend:          strings.ToLower(env.str("SHEET_BACKEND", BackendSheets)),
			SpreadsheetID:    env.str("SPREADSHEET_ID", ""),
			CredentialsFile:  env.str("GOOGLE_CREDENTIALS_FILE", ""),
			WorkbookPath:     env.str("WORKBOOK_PATH", ""),
			SummaryTab:       env.str("SUMMARY_TAB", DefaultSummaryTab),
			ViewIgnoreTabs:   env.list("VIEW_IGNORE_TABS", DefaultViewIgnoreTabs),
			AppendIgnoreTabs: env.list("APPEND_IGNORE_TABS", DefaultAppendIgnoreTabs),
			RoleTableFile:    env.str("ROLE_TABLE_FILE", ""),
		},
		Database: DatabaseConfig{
			URL: env.str("DATABASE_URL", ""),
		},
		Cache: CacheConfig{
			TTL: env.duration("CACHE_TTL", 10*time.Minute),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: env.boolean("METRICS_ENABLED", true),
		},
		Profiling: ProfilingConfig{
			Enabled: env.boolean("PPROF_ENABLED", false),
			Port:    env.integer("PPROF_PORT", 6060),
		},
	}

	if len(env.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(env.errs...))
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Sheet.Backend {
	case BackendSheets:
		if c.Sheet.SpreadsheetID == "" {
			return fmt.Errorf("%w: SPREADSHEET_ID is required for the sheets backend", ErrInvalidConfig)
		}
	case BackendWorkbook:
		if c.Sheet.WorkbookPath == "" {
			return fmt.Errorf("%w: WORKBOOK_PATH is required for the xlsx backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown SHEET_BACKEND %q", ErrInvalidConfig, c.Sheet.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: SERVER_PORT out of range", ErrInvalidConfig)
	}
	return nil
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

// list splits a comma separated value. "-" yields an empty list.
func (e *envReader) list(key string, def []string) []string {
	v := strings.TrimSpace(e.getenv(key))
	if v == "" {
		return append([]string(nil), def...)
	}
	if v == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
