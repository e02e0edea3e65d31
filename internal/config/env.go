package config

import (
	"errors"
	"fmt"
	"os"
)

const envPrefix = "TASKLIST_"

// envBinding maps one environment variable onto a config field.
type envBinding struct {
	name  string // variable name without prefix
	field string // source-tracking field name
	str   *string
	flag  *bool
}

func envBindings(cfg *Config) []envBinding {
	return []envBinding{
		{name: "STORE", field: "store.backend", str: &cfg.Store.Backend},
		{name: "STORE_DIR", field: "store.dir", str: &cfg.Store.Dir},
		{name: "KEY", field: "store.key", str: &cfg.Store.Key},
		{name: "MYSQL_DSN", field: "store.mysql_dsn", str: &cfg.Store.MySQLDSN},
		{name: "MYSQL_TABLE", field: "store.mysql_table", str: &cfg.Store.MySQLTable},
		{name: "SAVE_MODE", field: "save_mode", str: &cfg.SaveMode},
		{name: "ID_FORMAT", field: "id_format", str: &cfg.IDFormat},
		{name: "LOG_DIR", field: "log_dir", str: &cfg.LogDir},
		{name: "LOG_LEVEL", field: "log_level", str: &cfg.LogLevel},
		{name: "LOG_FORMAT", field: "log_format", str: &cfg.LogFormat},
		{name: "LOG_TIMESTAMPS", field: "log_timestamps", flag: &cfg.LogTimestamps},
		{name: "LOG_CALLER", field: "log_caller", flag: &cfg.LogCaller},
	}
}

// loadFromEnv overrides config from TASKLIST_* environment variables.
// Empty variables are ignored.
func loadFromEnv(cfg *Config, sources map[string]ConfigSource) error {
	var errs []error
	for _, b := range envBindings(cfg) {
		v := os.Getenv(envPrefix + b.name)
		if v == "" {
			continue
		}
		if b.flag != nil {
			parsed, err := boolFromString(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, b.name, err))
				continue
			}
			*b.flag = parsed
		} else {
			*b.str = v
		}
		sources[b.field] = SourceEnv
	}
	return errors.Join(errs...)
}
