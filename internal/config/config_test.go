package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nibzard/tasklist-go/internal/kvstore"
	"github.com/nibzard/tasklist-go/internal/manager"
)

// isolate points HOME and the config dirs at a temp dir, clears TASKLIST_*
// variables, and changes into an empty working directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	for _, b := range envBindings(&Config{}) {
		t.Setenv(envPrefix+b.name, "")
	}
	t.Setenv(envPrefix+"CONFIG", "")
	chdir(t, t.TempDir())
	return home
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("tasklist", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Store.Backend != "file" {
		t.Errorf("Store.Backend: got %q, want file", cfg.Store.Backend)
	}
	if want := filepath.Join(home, ".tasklist", "store"); cfg.Store.Dir != want {
		t.Errorf("Store.Dir: got %q, want %q", cfg.Store.Dir, want)
	}
	if cfg.Store.Key != "tasks" {
		t.Errorf("Store.Key: got %q, want tasks", cfg.Store.Key)
	}
	if cfg.SaveMode != "concurrent" {
		t.Errorf("SaveMode: got %q, want concurrent", cfg.SaveMode)
	}
	if cfg.IDFormat != "uuid7" {
		t.Errorf("IDFormat: got %q, want uuid7", cfg.IDFormat)
	}
	if want := filepath.Join(home, ".tasklist", "logs"); cfg.LogDir != want {
		t.Errorf("LogDir: got %q, want %q", cfg.LogDir, want)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("logging: got %q/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadUserConfigFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".tasklist", "tasklist.toml"), `
save_mode = "queued"
log_level = "debug"

[store]
backend = "memory"
key = "groceries"
`)

	cws, err := LoadWithSources(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config
	if cfg.SaveMode != "queued" {
		t.Errorf("SaveMode: got %q, want queued", cfg.SaveMode)
	}
	if cfg.Store.Backend != "memory" || cfg.Store.Key != "groceries" {
		t.Errorf("Store: got %+v", cfg.Store)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q, want debug", cfg.LogLevel)
	}
	if cfg.IDFormat != "uuid7" {
		t.Errorf("IDFormat not left at default: %q", cfg.IDFormat)
	}

	if got := cws.Sources["save_mode"]; got != SourceUserFile {
		t.Errorf("save_mode source: got %q, want %q", got, SourceUserFile)
	}
	if got := cws.Sources["store.key"]; got != SourceUserFile {
		t.Errorf("store.key source: got %q, want %q", got, SourceUserFile)
	}
	if got := cws.Sources["id_format"]; got != SourceDefault {
		t.Errorf("id_format source: got %q, want %q", got, SourceDefault)
	}
	if got := cws.GetConfigFile(); !strings.HasSuffix(got, "tasklist.toml") {
		t.Errorf("GetConfigFile: got %q", got)
	}
}

func TestXDGConfigFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux/BSD only")
	}
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".config", "tasklist", "tasklist.toml"), `id_format = "timestamp"`)

	cfg, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IDFormat != "timestamp" {
		t.Errorf("IDFormat: got %q, want timestamp", cfg.IDFormat)
	}
}

func TestProjectConfigOverridesUser(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".tasklist", "tasklist.toml"), `
save_mode = "queued"
log_format = "json"
`)
	writeFile(t, "tasklist.toml", `log_format = "logfmt"`)

	cws, err := LoadWithSources(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	if cws.Config.SaveMode != "queued" {
		t.Errorf("SaveMode: got %q, want queued from user file", cws.Config.SaveMode)
	}
	if cws.Config.LogFormat != "logfmt" {
		t.Errorf("LogFormat: got %q, want logfmt from project file", cws.Config.LogFormat)
	}
	if cws.Sources["log_format"] != SourceProjFile {
		t.Errorf("log_format source: got %q", cws.Sources["log_format"])
	}
	if len(cws.Files) != 2 {
		t.Errorf("Files: got %v, want user and project", cws.Files)
	}
}

func TestExplicitConfigReplacesFiles(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".tasklist", "tasklist.toml"), `save_mode = "queued"`)
	explicit := filepath.Join(home, "other.toml")
	writeFile(t, explicit, `id_format = "timestamp"`)

	for _, args := range [][]string{
		{"--config", explicit},
		{"-config=" + explicit},
	} {
		cws, err := LoadWithSources(newFlagSet(), args)
		if err != nil {
			t.Fatalf("LoadWithSources(%v): %v", args, err)
		}
		if cws.Config.SaveMode != "concurrent" {
			t.Errorf("%v: user file was read: SaveMode %q", args, cws.Config.SaveMode)
		}
		if cws.Config.IDFormat != "timestamp" {
			t.Errorf("%v: IDFormat got %q", args, cws.Config.IDFormat)
		}
		if cws.Config.ConfigFile != explicit {
			t.Errorf("%v: ConfigFile got %q", args, cws.Config.ConfigFile)
		}
		if cws.Sources["id_format"] != SourceExplicit {
			t.Errorf("%v: id_format source %q", args, cws.Sources["id_format"])
		}
	}

	t.Setenv("TASKLIST_CONFIG", explicit)
	cfg, err := Load(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("Load with TASKLIST_CONFIG: %v", err)
	}
	if cfg.IDFormat != "timestamp" {
		t.Errorf("TASKLIST_CONFIG ignored: IDFormat %q", cfg.IDFormat)
	}
}

func TestConfigFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax", `save_mode = `, "loading config file"},
		{"unknown key", "save_mod = \"queued\"\n[store]\nbackend = \"file\"\ncolor = \"red\"", "unknown keys: save_mod, store.color"},
		{"wrong type", `log_caller = "sometimes"`, "loading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			path := filepath.Join(home, "bad.toml")
			writeFile(t, path, tt.content)
			_, err := Load(newFlagSet(), []string{"--config", path})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TASKLIST_STORE", "mysql")
	t.Setenv("TASKLIST_MYSQL_DSN", "u:p@tcp(db:3306)/tasks")
	t.Setenv("TASKLIST_KEY", "work")
	t.Setenv("TASKLIST_SAVE_MODE", "Queued")
	t.Setenv("TASKLIST_LOG_TIMESTAMPS", "yes")

	cws, err := LoadWithSources(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config
	if cfg.Store.Backend != "mysql" || cfg.Store.MySQLDSN != "u:p@tcp(db:3306)/tasks" || cfg.Store.Key != "work" {
		t.Errorf("Store: got %+v", cfg.Store)
	}
	if cfg.SaveMode != "queued" {
		t.Errorf("SaveMode: got %q, want normalized queued", cfg.SaveMode)
	}
	if !cfg.LogTimestamps {
		t.Error("LogTimestamps: got false, want true")
	}
	if cws.Sources["store.backend"] != SourceEnv {
		t.Errorf("store.backend source: got %q", cws.Sources["store.backend"])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromEnvInvalidBool(t *testing.T) {
	isolate(t)
	t.Setenv("TASKLIST_LOG_CALLER", "maybe")
	if _, err := Load(newFlagSet(), nil); err == nil || !strings.Contains(err.Error(), "TASKLIST_LOG_CALLER") {
		t.Errorf("expected TASKLIST_LOG_CALLER error, got %v", err)
	}
}

func TestFlagsOverrideEverything(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".tasklist", "tasklist.toml"), `
save_mode = "queued"
[store]
dir = "/from/file"
`)
	t.Setenv("TASKLIST_STORE_DIR", "/from/env")
	t.Setenv("TASKLIST_LOG_LEVEL", "warn")

	fs := newFlagSet()
	cws, err := LoadWithSources(fs, []string{"-store-dir", "/from/flag", "--save-mode=concurrent", "-log-caller", "add", "milk"})
	if err != nil {
		t.Fatalf("LoadWithSources: %v", err)
	}
	cfg := cws.Config
	if cfg.Store.Dir != "/from/flag" {
		t.Errorf("Store.Dir: got %q, want /from/flag", cfg.Store.Dir)
	}
	if cfg.SaveMode != "concurrent" {
		t.Errorf("SaveMode: got %q, want concurrent", cfg.SaveMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel: got %q, want warn from env", cfg.LogLevel)
	}
	if !cfg.LogCaller {
		t.Error("LogCaller: got false, want true")
	}
	if cws.Sources["store.dir"] != SourceFlag || cws.Sources["log_level"] != SourceEnv {
		t.Errorf("sources: %v", cws.Sources)
	}
	if got := fs.Args(); len(got) != 2 || got[0] != "add" || got[1] != "milk" {
		t.Errorf("remaining args: got %v", got)
	}
}

func TestUnsetFlagsKeepLowerLayers(t *testing.T) {
	isolate(t)
	t.Setenv("TASKLIST_LOG_TIMESTAMPS", "true")
	cfg, err := Load(newFlagSet(), []string{"-log-level", "debug"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.LogTimestamps {
		t.Error("unset -log-timestamps flag reset the env value")
	}
}

func TestExplicitConfigFile(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  string
		want string
	}{
		{"none", []string{"ls"}, "", ""},
		{"separate value", []string{"--config", "a.toml", "ls"}, "", "a.toml"},
		{"single dash", []string{"-config", "b.toml"}, "", "b.toml"},
		{"equals", []string{"--config=c.toml"}, "", "c.toml"},
		{"env fallback", []string{"ls"}, "d.toml", "d.toml"},
		{"flag beats env", []string{"-config=e.toml"}, "d.toml", "e.toml"},
		{"after terminator", []string{"--", "--config", "x.toml"}, "", ""},
		{"similar flag", []string{"--configure", "x"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TASKLIST_CONFIG", tt.env)
			if got := explicitConfigFile(tt.args); got != tt.want {
				t.Errorf("explicitConfigFile(%v): got %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		setDefaults(cfg)
		cfg.Store.Dir = "/data"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"file without dir", func(c *Config) { c.Store.Dir = " " }, "store.dir"},
		{"memory without dir", func(c *Config) { c.Store.Backend = "memory"; c.Store.Dir = "" }, ""},
		{"mysql without dsn", func(c *Config) { c.Store.Backend = "mysql" }, "store.mysql_dsn"},
		{"mysql bad table", func(c *Config) {
			c.Store.Backend = "mysql"
			c.Store.MySQLDSN = "u@tcp(h:3306)/db"
			c.Store.MySQLTable = "a b"
		}, "store.mysql_table"},
		{"unsafe key", func(c *Config) { c.Store.Key = "../etc" }, "store.key"},
		{"unknown save mode", func(c *Config) { c.SaveMode = "eventually" }, "save_mode"},
		{"unknown id format", func(c *Config) { c.IDFormat = "ulid" }, "id_format"},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate: got %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.SaveMode = "x"
	cfg.IDFormat = "y"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"save_mode", "id_format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestDerivedOptions(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Store.Dir = "/data"
	cfg.SaveMode = "queued"
	cfg.IDFormat = "timestamp"
	cfg.LogTimestamps = true

	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		t.Fatal(err)
	}
	if storeOpts.Backend != kvstore.BackendFile || storeOpts.Dir != "/data" {
		t.Errorf("StoreOptions: got %+v", storeOpts)
	}

	mgrOpts, err := cfg.ManagerOptions()
	if err != nil {
		t.Fatal(err)
	}
	if mgrOpts.SaveMode != manager.SaveQueued || mgrOpts.Key != "tasks" {
		t.Errorf("ManagerOptions: got %+v", mgrOpts)
	}
	if mgrOpts.NewID == nil {
		t.Fatal("ManagerOptions: NewID is nil")
	}
	id := mgrOpts.NewID()
	for _, r := range id {
		if r < '0' || r > '9' {
			t.Fatalf("timestamp id %q is not decimal", id)
		}
	}

	logOpts, err := cfg.LogOptions()
	if err != nil {
		t.Fatal(err)
	}
	if !logOpts.ReportTimestamp || logOpts.Prefix != "tasklist" {
		t.Errorf("LogOptions: got %+v", logOpts)
	}
}

func TestBoolFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"1", true, false},
		{"TRUE", true, false},
		{" yes ", true, false},
		{"on", true, false},
		{"0", false, false},
		{"false", false, false},
		{"No", false, false},
		{"off", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		got, err := boolFromString(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("boolFromString(%q): got %v, %v", tt.in, got, err)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)
	t.Setenv("TASKLIST_TEST_DIR", "/srv/tasks")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/store", filepath.Join(home, "store")},
		{"$TASKLIST_TEST_DIR/store", "/srv/tasks/store"},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExampleConfigParses(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "example.toml")
	writeFile(t, path, ExampleConfig())

	cfg, err := Load(newFlagSet(), []string{"--config", path})
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("example config does not validate: %v", err)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
