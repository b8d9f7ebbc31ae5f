// Package db stores the run statistics ledger in SQLite.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicate is returned when a ledger row already exists
var ErrDuplicate = errors.New("db: duplicate key")

// Config holds the ledger connection settings
type Config struct {
	Driver          string        `toml:"driver" env:"DRIVER"`
	DSN             string        `toml:"dsn" env:"DSN"`
	MaxOpenConns    int           `toml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `toml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DefaultConfig returns a single-connection sqlite file next to the binary
func DefaultConfig() Config {
	return Config{
		Driver:       "sqlite3",
		DSN:          "panelclock.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// Validate checks the connection settings
func (c Config) Validate() error {
	if c.Driver == "" {
		return errors.New("db driver is required")
	}
	if c.DSN == "" {
		return errors.New("db dsn is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.Newf("db connection limits must not be negative (open=%d idle=%d)",
			c.MaxOpenConns, c.MaxIdleConns)
	}
	return nil
}

// DB is the ledger connection pool
type DB struct {
	*sql.DB
}

// Tx is a ledger transaction
type Tx struct {
	*sql.Tx
}

// Open connects with default pool settings
func Open(driver, dsn string) (*DB, error) {
	return OpenWithConfig(Config{Driver: driver, DSN: dsn})
}

// OpenWithConfig connects, applies the pool limits and checks the connection
func OpenWithConfig(config Config) (*DB, error) {
	conn, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s ledger", config.Driver)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "ping %s ledger %s", config.Driver, config.DSN)
	}

	if config.Driver == "sqlite3" {
		// Flushes and -report readers may share one file
		if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "set sqlite busy timeout")
		}
	}

	return &DB{DB: conn}, nil
}

// WithTransaction runs fn in a transaction, committing if it returns nil and
// rolling back on error or panic
func (db *DB) WithTransaction(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{Tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	committed = true
	return nil
}

// IsDuplicate reports whether err is ErrDuplicate or a sqlite uniqueness
// violation
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
