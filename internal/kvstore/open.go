package kvstore

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

// Options selects and configures a store backend.
type Options struct {
	Backend    Backend
	Dir        string   // file backend directory
	Fs         afero.Fs // file backend filesystem; nil means the OS filesystem
	MySQLDSN   string
	MySQLTable string
}

// Open builds the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		s, err := NewFileStore(opts.Fs, opts.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendMySQL:
		s, err := OpenMySQLStore(ctx, opts.MySQLDSN, opts.MySQLTable)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// Describe returns a short human-readable location for opts.
func Describe(opts Options) string {
	switch opts.Backend {
	case "", BackendFile:
		return "file:" + opts.Dir
	case BackendMemory:
		return "memory"
	case BackendMySQL:
		cfg, err := ParseMySQLDSN(opts.MySQLDSN)
		if err != nil {
			return "mysql:(invalid dsn)"
		}
		table := opts.MySQLTable
		if table == "" {
			table = DefaultMySQLTable
		}
		return fmt.Sprintf("mysql:%s/%s.%s", cfg.Addr, cfg.DBName, table)
	default:
		return string(opts.Backend)
	}
}
