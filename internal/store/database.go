// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go SQLite driver, registered as "sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrations embed.FS

// DBConfig holds database configuration options.
type DBConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int
	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be idle.
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns sensible defaults.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		// SQLite with WAL mode supports multiple readers but a single writer.
		// Redirect traffic is read heavy, so keep a wide pool.
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// DB is a connection pool bound to its SQL dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// NewDB opens a SQLite database using the pure Go driver.
func NewDB(path string) (*DB, error) {
	return Open(DialectSQLite.Driver, path, DefaultDBConfig())
}

// Open opens a database for the given driver ("sqlite", "sqlite3" or "mysql")
// and configures the pool.
func Open(driver, dsn string, cfg DBConfig) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	dsn, err = dialect.prepareDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("preparing dsn: %w", err)
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	for _, stmt := range dialect.initStatements {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("executing %q: %w", stmt, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// Queries returns a query set bound to the pool.
func (db *DB) Queries() *Queries {
	return New(db.DB, db.Dialect)
}

// Migrate runs all pending database migrations for the pool's dialect.
func Migrate(db *DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(db.Dialect.Goose); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db.DB, db.Dialect.migrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// sqliteDSN appends per-connection pragmas to a file path. A DSN that already
// carries parameters keeps them; only the modernc time format is added.
// modernc writes time.Time as Go's String() form unless told otherwise, which
// SQLite date functions cannot parse.
func sqliteDSN(path string, pragmas map[string]string, driver string) string {
	modernc := driver != DialectSQLite3.Driver
	if strings.Contains(path, "?") {
		if modernc && !strings.Contains(path, "_time_format=") {
			return path + "&_time_format=sqlite"
		}
		return path
	}
	var params []string
	for _, name := range []string{"busy_timeout", "foreign_keys", "synchronous"} {
		val, ok := pragmas[name]
		if !ok {
			continue
		}
		if modernc {
			params = append(params, "_pragma="+name+"("+val+")")
		} else {
			params = append(params, "_"+name+"="+val)
		}
	}
	if modernc {
		params = append(params, "_time_format=sqlite")
	}
	if len(params) == 0 {
		return path
	}
	return path + "?" + strings.Join(params, "&")
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
