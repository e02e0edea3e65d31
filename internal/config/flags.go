package config

import (
	"flag"
)

// parseFlags defines the configuration flags on fs, parses args, and
// applies only the flags that were set explicitly.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("tasklist", flag.ContinueOnError)
	}

	// Bind to copies so defaults shown in usage reflect the merged config
	// while unset flags leave cfg untouched.
	next := *cfg
	var configFile string

	fs.StringVar(&configFile, "config", cfg.ConfigFile, "Config file (replaces user and project config files)")
	fs.StringVar(&next.Store.Backend, "store", cfg.Store.Backend, "Store backend (file, memory, mysql)")
	fs.StringVar(&next.Store.Dir, "store-dir", cfg.Store.Dir, "Directory for the file store")
	fs.StringVar(&next.Store.Key, "key", cfg.Store.Key, "Store key holding the task list")
	fs.StringVar(&next.Store.MySQLDSN, "mysql-dsn", cfg.Store.MySQLDSN, "MySQL DSN for the mysql store")
	fs.StringVar(&next.Store.MySQLTable, "mysql-table", cfg.Store.MySQLTable, "MySQL table for the mysql store (default kv_store)")
	fs.StringVar(&next.SaveMode, "save-mode", cfg.SaveMode, "Save mode (concurrent, queued)")
	fs.StringVar(&next.IDFormat, "id-format", cfg.IDFormat, "Task id format (uuid7, timestamp)")
	fs.StringVar(&next.LogDir, "log-dir", cfg.LogDir, "Log directory")
	fs.StringVar(&next.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&next.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&next.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&next.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Map flag names to source field names
	flagToSource := map[string]string{
		"store":          "store.backend",
		"store-dir":      "store.dir",
		"key":            "store.key",
		"mysql-dsn":      "store.mysql_dsn",
		"mysql-table":    "store.mysql_table",
		"save-mode":      "save_mode",
		"id-format":      "id_format",
		"log-dir":        "log_dir",
		"log-level":      "log_level",
		"log-format":     "log_format",
		"log-timestamps": "log_timestamps",
		"log-caller":     "log_caller",
	}

	fs.Visit(func(f *flag.Flag) {
		field, ok := flagToSource[f.Name]
		if !ok {
			return
		}
		sources[field] = SourceFlag
		switch f.Name {
		case "store":
			cfg.Store.Backend = next.Store.Backend
		case "store-dir":
			cfg.Store.Dir = next.Store.Dir
		case "key":
			cfg.Store.Key = next.Store.Key
		case "mysql-dsn":
			cfg.Store.MySQLDSN = next.Store.MySQLDSN
		case "mysql-table":
			cfg.Store.MySQLTable = next.Store.MySQLTable
		case "save-mode":
			cfg.SaveMode = next.SaveMode
		case "id-format":
			cfg.IDFormat = next.IDFormat
		case "log-dir":
			cfg.LogDir = next.LogDir
		case "log-level":
			cfg.LogLevel = next.LogLevel
		case "log-format":
			cfg.LogFormat = next.LogFormat
		case "log-timestamps":
			cfg.LogTimestamps = next.LogTimestamps
		case "log-caller":
			cfg.LogCaller = next.LogCaller
		}
	})

	return nil
}
