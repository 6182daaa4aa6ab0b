package storeinfra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-accounts/model"
	"github.com/goliatone/go-accounts/store"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config describes how to reach the database.
type Config struct {
	// Driver is either "sqlite" or "postgres".
	Driver string

	// DSN is handed to database/sql as is. For sqlite use a file path or a
	// "file:name?mode=memory&cache=shared" URI.
	DSN string

	// MaxOpenConns bounds the pool. sqlite is always limited to a single
	// connection so that transactions serialize instead of failing with
	// "database is locked".
	MaxOpenConns int
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return &ConfigError{Field: "Driver", Message: "must be sqlite or postgres"}
	}
	if c.DSN == "" {
		return &ConfigError{Field: "DSN", Message: "cannot be empty"}
	}
	if c.MaxOpenConns < 0 {
		return &ConfigError{Field: "MaxOpenConns", Message: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "store config error in field " + e.Field + ": " + e.Message
}

// BunStore implements store.Store on top of bun.
type BunStore struct {
	db *bun.DB
	repositories
}

var _ store.Store = (*BunStore)(nil)

// Open connects to the configured database, creates the schema and returns
// the store.
func Open(ctx context.Context, cfg Config) (*BunStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db *bun.DB
	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	}

	s := New(db)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing bun database. The schema is not touched.
func New(db *bun.DB) *BunStore {
	return &BunStore{db: db, repositories: repositories{db: db}}
}

// DB exposes the underlying handle.
func (s *BunStore) DB() *bun.DB {
	return s.db
}

// RunInTx implements store.Store.
func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, repositories{db: tx})
	})
}

// Ping checks connectivity.
func (s *BunStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Failure(err, "ping")
	}
	return nil
}

// Close releases the connection pool.
func (s *BunStore) Close() error {
	return s.db.Close()
}

// CreateSchema creates every table that does not exist yet, parents first.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	tables := []struct {
		entity      any
		foreignKeys []string
	}{
		{entity: (*model.Department)(nil)},
		{entity: (*model.Role)(nil)},
		{
			entity:      (*model.Account)(nil),
			foreignKeys: []string{`("department_id") REFERENCES "departments" ("id")`},
		},
		{
			entity:      (*model.Credentials)(nil),
			foreignKeys: []string{`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`},
		},
		{
			entity: (*model.AccountRole)(nil),
			foreignKeys: []string{
				`("account_id") REFERENCES "accounts" ("id") ON DELETE CASCADE`,
				`("role_id") REFERENCES "roles" ("id")`,
			},
		},
	}

	for _, table := range tables {
		q := s.db.NewCreateTable().Model(table.entity).IfNotExists()
		for _, fk := range table.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return store.Failure(err, fmt.Sprintf("create table %T", table.entity))
		}
	}
	return nil
}

// sqliteDSN turns on foreign key enforcement for every pooled connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
