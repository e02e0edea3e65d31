package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DefaultMySQLTable is the table used when none is configured.
const DefaultMySQLTable = "kv_store"

// MySQLStore keeps values in a two-column MySQL table.
type MySQLStore struct {
	db    *sql.DB
	table string
}

// ParseMySQLDSN parses and normalizes a go-sql-driver DSN.
func ParseMySQLDSN(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql dsn is empty")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("mysql dsn has no database name")
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return cfg, nil
}

// OpenMySQLStore connects using dsn, checks the connection and creates the
// table if needed.
func OpenMySQLStore(ctx context.Context, dsn, table string) (*MySQLStore, error) {
	cfg, err := ParseMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	s, err := NewMySQLStore(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStore wraps an open database handle. It does not run migrations.
func NewMySQLStore(db *sql.DB, table string) (*MySQLStore, error) {
	if table == "" {
		table = DefaultMySQLTable
	}
	if err := ValidateKey(table); err != nil {
		return nil, fmt.Errorf("mysql table name: %w", err)
	}
	return &MySQLStore{db: db, table: table}, nil
}

func (s *MySQLStore) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n"+
		"    k VARCHAR(191) NOT NULL PRIMARY KEY,\n"+
		"    v LONGTEXT NOT NULL,\n"+
		"    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP\n"+
		") DEFAULT CHARSET=utf8mb4", s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Get reads the row for key.
func (s *MySQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}
	var v []byte
	query := fmt.Sprintf("SELECT v FROM `%s` WHERE k = ?", s.table)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return v, true, nil
}

// Set upserts the row for key.
func (s *MySQLStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	stmt := fmt.Sprintf("INSERT INTO `%s` (k, v) VALUES (?, ?)\n"+
		"    ON DUPLICATE KEY UPDATE v = VALUES(v)", s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Close closes the database handle.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
