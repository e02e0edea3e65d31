package config

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.tasklist/tasklist.toml or OS-specific config dir)
// 3. Project config file (tasklist.toml or .tasklist.toml in current directory)
// 4. Environment variables
// 5. CLI flags
//
// The flags are defined on fs, which is parsed with args.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
// Returns ConfigWithSources containing the config and a map of field names to their sources.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	sources := make(map[string]ConfigSource)
	cfg := &Config{}
	var files []string

	// 1. Set defaults (all fields start with default source)
	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	// 2-3. Config files. An explicit file replaces the user and project files.
	explicit := explicitConfigFile(args)
	if explicit != "" {
		path := expandPath(explicit)
		if err := loadConfigFile(cfg, path, sources, SourceExplicit); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		files = append(files, path)
		cfg.ConfigFile = path
	} else {
		if userConfigFile := findUserConfigFile(); userConfigFile != "" {
			if err := loadConfigFile(cfg, userConfigFile, sources, SourceUserFile); err != nil {
				return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
			}
			files = append(files, userConfigFile)
		}
		if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
			if err := loadConfigFile(cfg, projectConfigFile, sources, SourceProjFile); err != nil {
				return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
			}
			files = append(files, projectConfigFile)
		}
	}

	// 4. Override from environment
	if err := loadFromEnv(cfg, sources); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	// 5. Parse CLI flags (they override everything)
	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// 6. Compute derived values
	finalizeConfig(cfg)

	return &ConfigWithSources{
		Config:  cfg,
		Sources: sources,
		Files:   files,
	}, nil
}

// configFields returns the list of configurable field names for source tracking.
func configFields() []string {
	return []string{
		"store.backend",
		"store.dir",
		"store.key",
		"store.mysql_dsn",
		"store.mysql_table",
		"save_mode",
		"id_format",
		"log_dir",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// loadConfigFile decodes a TOML file over cfg and records which fields it set.
// Keys that do not map to a config field are an error.
func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, field := range configFields() {
		if md.IsDefined(strings.Split(field, ".")...) {
			sources[field] = source
		}
	}
	return nil
}

// finalizeConfig normalizes enum spellings and expands paths.
func finalizeConfig(cfg *Config) {
	cfg.Store.Backend = normalizeName(cfg.Store.Backend)
	cfg.SaveMode = normalizeName(cfg.SaveMode)
	cfg.IDFormat = normalizeName(cfg.IDFormat)
	cfg.LogLevel = normalizeName(cfg.LogLevel)
	cfg.LogFormat = normalizeName(cfg.LogFormat)
	cfg.Store.Key = strings.TrimSpace(cfg.Store.Key)

	cfg.Store.Dir = expandPath(cfg.Store.Dir)
	cfg.LogDir = expandPath(cfg.LogDir)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
