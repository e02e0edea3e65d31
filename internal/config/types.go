package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nibzard/tasklist-go/internal/kvstore"
	"github.com/nibzard/tasklist-go/internal/logging"
	"github.com/nibzard/tasklist-go/internal/manager"
	"github.com/nibzard/tasklist-go/internal/todo"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceExplicit ConfigSource = "config file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// ConfigWithSources holds configuration along with source information for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
	// Files lists the config files that were read, in load order.
	Files []string
}

// Default values.
const (
	DefaultBaseDir   = "~/.tasklist"
	DefaultStoreDir  = DefaultBaseDir + "/store"
	DefaultLogDir    = DefaultBaseDir + "/logs"
	DefaultBackend   = string(kvstore.BackendFile)
	DefaultKey       = manager.DefaultKey
	DefaultSaveMode  = string(manager.SaveConcurrent)
	DefaultIDFormat  = string(todo.IDFormatUUID7)
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds the full configuration for tasklist.
type Config struct {
	// Persistence
	Store StoreConfig `toml:"store"`

	// How overlapping saves reach the store: concurrent or queued
	SaveMode string `toml:"save_mode"`

	// Task id generator: uuid7 or timestamp
	IDFormat string `toml:"id_format"`

	// Logging configuration
	LogDir        string `toml:"log_dir"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
	LogCaller     bool   `toml:"log_caller"`

	// Explicit config file (from --config or TASKLIST_CONFIG)
	ConfigFile string `toml:"-"`
}

// StoreConfig selects and configures the key-value store.
type StoreConfig struct {
	Backend    string `toml:"backend"`     // file, memory or mysql
	Dir        string `toml:"dir"`         // file backend directory
	Key        string `toml:"key"`         // key holding the task list
	MySQLDSN   string `toml:"mysql_dsn"`   // go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/db
	MySQLTable string `toml:"mysql_table"` // defaults to kv_store
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	backend, err := kvstore.ParseBackend(c.Store.Backend)
	if err != nil {
		errs = append(errs, fmt.Errorf("store.backend: %w", err))
	}
	switch backend {
	case kvstore.BackendFile:
		if strings.TrimSpace(c.Store.Dir) == "" {
			errs = append(errs, errors.New("store.dir: required for the file backend"))
		}
	case kvstore.BackendMySQL:
		if _, err := kvstore.ParseMySQLDSN(c.Store.MySQLDSN); err != nil {
			errs = append(errs, fmt.Errorf("store.mysql_dsn: %w", err))
		}
		if c.Store.MySQLTable != "" {
			if err := kvstore.ValidateKey(c.Store.MySQLTable); err != nil {
				errs = append(errs, fmt.Errorf("store.mysql_table: %w", err))
			}
		}
	}
	if err := kvstore.ValidateKey(c.Store.Key); err != nil {
		errs = append(errs, fmt.Errorf("store.key: %w", err))
	}
	if _, err := manager.ParseSaveMode(c.SaveMode); err != nil {
		errs = append(errs, fmt.Errorf("save_mode: %w", err))
	}
	if _, err := todo.ParseIDFormat(c.IDFormat); err != nil {
		errs = append(errs, fmt.Errorf("id_format: %w", err))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := logging.ParseFormatter(c.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("log_format: %w", err))
	}

	return errors.Join(errs...)
}

// StoreOptions returns the options for opening the configured store.
func (c *Config) StoreOptions() (kvstore.Options, error) {
	backend, err := kvstore.ParseBackend(c.Store.Backend)
	if err != nil {
		return kvstore.Options{}, err
	}
	return kvstore.Options{
		Backend:    backend,
		Dir:        c.Store.Dir,
		MySQLDSN:   c.Store.MySQLDSN,
		MySQLTable: c.Store.MySQLTable,
	}, nil
}

// ManagerOptions returns the manager settings derived from the config.
// Notifier and Logger are left for the caller.
func (c *Config) ManagerOptions() (manager.Options, error) {
	mode, err := manager.ParseSaveMode(c.SaveMode)
	if err != nil {
		return manager.Options{}, err
	}
	format, err := todo.ParseIDFormat(c.IDFormat)
	if err != nil {
		return manager.Options{}, err
	}
	return manager.Options{
		Key:      c.Store.Key,
		SaveMode: mode,
		NewID:    format.Generator(),
	}, nil
}

// LogOptions returns the logger options derived from the config.
func (c *Config) LogOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.Options{}, err
	}
	formatter, err := logging.ParseFormatter(c.LogFormat)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: c.LogTimestamps,
		ReportCaller:    c.LogCaller,
		Prefix:          "tasklist",
	}, nil
}
