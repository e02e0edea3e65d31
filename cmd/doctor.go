package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nibzard/tasklist-go/internal/config"
	"github.com/nibzard/tasklist-go/internal/kvstore"
	"github.com/nibzard/tasklist-go/internal/todo"
)

// doctorCommand checks the config, the store and the stored task list.
func doctorCommand(ctx context.Context, cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("tasklist doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	cfg := cws.Config

	fmt.Fprintln(stdout, "Tasklist Doctor")
	fmt.Fprintln(stdout, "===============")
	fmt.Fprintln(stdout)

	allOK := true

	// Config files
	fmt.Fprintln(stdout, "Config files:")
	if len(cws.Files) == 0 {
		fmt.Fprintln(stdout, "  ⚠️  None found (using defaults)")
	}
	for _, f := range cws.Files {
		fmt.Fprintf(stdout, "  ✅ %s\n", f)
	}
	fmt.Fprintln(stdout)

	// Config values
	fmt.Fprintln(stdout, "Config:")
	if err := cfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(stdout, "  ❌ %s\n", line)
		}
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "⚠️  Some checks failed. Tasklist may not function correctly.")
		return fmt.Errorf("doctor checks failed")
	}
	fmt.Fprintln(stdout, "  ✅ OK")
	fmt.Fprintln(stdout)

	// Log directory
	fmt.Fprintf(stdout, "Log directory: %s\n", cfg.LogDir)
	if err := checkWritableDir(cfg.LogDir); err != nil {
		fmt.Fprintf(stdout, "  ⚠️  %v (logs will go to stderr)\n", err)
	} else {
		fmt.Fprintln(stdout, "  ✅ Writable")
	}
	fmt.Fprintln(stdout)

	// Store
	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Store: %s\n", kvstore.Describe(storeOpts))
	store, err := kvstore.Open(ctx, storeOpts)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ Error: %v\n", err)
		allOK = false
	} else {
		defer store.Close()
		fmt.Fprintln(stdout, "  ✅ OK")
		if storeOpts.Backend == kvstore.BackendMemory {
			fmt.Fprintln(stdout, "  ⚠️  Memory store: tasks are lost on exit")
		}
	}
	fmt.Fprintln(stdout)

	// Stored task list
	if store != nil {
		fmt.Fprintf(stdout, "Stored tasks (key %q):\n", cfg.Store.Key)
		if !checkStoredTasks(ctx, store, cfg.Store.Key) {
			allOK = false
		}
		fmt.Fprintln(stdout)
	}

	// Overall status
	if allOK {
		fmt.Fprintln(stdout, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(stdout, "⚠️  Some checks failed. Tasklist may not function correctly.")
	return fmt.Errorf("doctor checks failed")
}

func checkStoredTasks(ctx context.Context, store kvstore.Store, key string) bool {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		fmt.Fprintf(stdout, "  ❌ Read error: %v\n", err)
		return false
	}
	if !ok {
		fmt.Fprintln(stdout, "  ⚠️  Not found (will be created on first save)")
		return true
	}
	tasks, err := todo.Decode(data)
	if err != nil {
		var schemaErr *todo.SchemaError
		if errors.As(err, &schemaErr) {
			fmt.Fprintln(stdout, "  ❌ Validation failed:")
			for _, p := range schemaErr.Problems {
				fmt.Fprintf(stdout, "     - %s: %s\n", problemPath(p.Path), p.Message)
			}
			return false
		}
		fmt.Fprintf(stdout, "  ❌ Load error: %v\n", err)
		return false
	}
	if err := todo.CheckUnique(tasks); err != nil {
		fmt.Fprintf(stdout, "  ⚠️  %v\n", err)
	}
	fmt.Fprintf(stdout, "  ✅ %d tasks, %d done\n", len(tasks), todo.CountCompleted(tasks))
	return true
}

func problemPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// configCommand prints the effective configuration with the source of each
// value.
func configCommand(cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("tasklist config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	example := fs.Bool("example", false, "Print an example config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *example {
		fmt.Fprint(stdout, config.ExampleConfig())
		return nil
	}

	if len(cws.Files) == 0 {
		fmt.Fprintln(stdout, "# no config files found")
	}
	for _, f := range cws.Files {
		fmt.Fprintf(stdout, "# read %s\n", f)
	}
	for _, e := range configEntries(cws.Config) {
		source := cws.Sources[e.name]
		if source == "" {
			source = config.SourceDefault
		}
		fmt.Fprintf(stdout, "%-20s = %-32s # %s\n", e.name, e.value, source)
	}
	return nil
}

type configEntry struct {
	name  string
	value string
}

func configEntries(cfg *config.Config) []configEntry {
	return []configEntry{
		{"store.backend", strconv.Quote(cfg.Store.Backend)},
		{"store.dir", strconv.Quote(cfg.Store.Dir)},
		{"store.key", strconv.Quote(cfg.Store.Key)},
		{"store.mysql_dsn", strconv.Quote(redactDSN(cfg.Store.MySQLDSN))},
		{"store.mysql_table", strconv.Quote(cfg.Store.MySQLTable)},
		{"save_mode", strconv.Quote(cfg.SaveMode)},
		{"id_format", strconv.Quote(cfg.IDFormat)},
		{"log_dir", strconv.Quote(cfg.LogDir)},
		{"log_level", strconv.Quote(cfg.LogLevel)},
		{"log_format", strconv.Quote(cfg.LogFormat)},
		{"log_timestamps", strconv.FormatBool(cfg.LogTimestamps)},
		{"log_caller", strconv.FormatBool(cfg.LogCaller)},
	}
}

// redactDSN hides the password in a MySQL DSN.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	mc, err := kvstore.ParseMySQLDSN(dsn)
	if err != nil {
		return "(invalid)"
	}
	if mc.Passwd != "" {
		mc.Passwd = "xxxxx"
	}
	return mc.FormatDSN()
}
