package types

import "errors"

// Config holds backend selection, server, and tuning parameters.
type Config struct {
	Backend     string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir     string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	DatabaseURL string `json:"database_url" yaml:"database_url" mapstructure:"database_url"`
	ServerAddr  string `json:"server_addr" yaml:"server_addr" mapstructure:"server_addr"`
	AuthSecret  string `json:"auth_secret" yaml:"auth_secret" mapstructure:"auth_secret"`
	PageSize    int    `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
	BatchSize   int    `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	LogLevel    string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat   string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Defaults applied by WithDefaults.
const (
	DefaultServerAddr = ":8080"
	DefaultPageSize   = 100
	DefaultBatchSize  = 1000
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrDatabaseURLMissing = errors.New("postgres backend requires database_url")
	ErrPageSizeInvalid    = errors.New("page size must be between 1 and 1000")
	ErrBatchSizeInvalid   = errors.New("batch size must be positive")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
}

// WithDefaults returns a copy with zero-valued tuning fields filled in.
func (c Config) WithDefaults() Config {
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	return c
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.DatabaseURL == "" {
		return ErrDatabaseURLMissing
	}
	if c.PageSize < 0 || c.PageSize > MaxPageLimit {
		return ErrPageSizeInvalid
	}
	if c.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	return nil
}
