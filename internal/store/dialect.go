// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"fmt"
)

// Dialect captures the SQL differences between supported databases.
// Both SQLite and MySQL use "?" placeholders, so only a few fragments differ.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// Goose is the goose dialect name.
	Goose string

	migrationsDir  string
	insertIgnore   string // INSERT variant that skips rows violating a unique key
	upsertOption   string // full statement: insert or replace an option value
	dayExpr        string // expression formatting click_timestamp as YYYY-MM-DD
	initStatements []string
	pragmas        map[string]string
}

var (
	// DialectSQLite is the pure Go SQLite driver (modernc.org/sqlite).
	DialectSQLite = Dialect{
		Driver:        "sqlite",
		Goose:         "sqlite3",
		migrationsDir: "migrations/sqlite",
		insertIgnore:  "INSERT OR IGNORE",
		upsertOption:  "INSERT INTO options (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		dayExpr:       "substr(click_timestamp, 1, 10)",
		initStatements: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA temp_store=MEMORY",
			"PRAGMA optimize",
		},
		pragmas: map[string]string{
			"busy_timeout": "5000",
			"foreign_keys": "1",
			"synchronous":  "NORMAL",
		},
	}

	// DialectSQLite3 is the cgo SQLite driver (mattn/go-sqlite3).
	DialectSQLite3 = Dialect{
		Driver:         "sqlite3",
		Goose:          "sqlite3",
		migrationsDir:  DialectSQLite.migrationsDir,
		insertIgnore:   DialectSQLite.insertIgnore,
		upsertOption:   DialectSQLite.upsertOption,
		dayExpr:        DialectSQLite.dayExpr,
		initStatements: DialectSQLite.initStatements,
		pragmas: map[string]string{
			"busy_timeout": "5000",
			"foreign_keys": "on",
			"synchronous":  "NORMAL",
		},
	}

	// DialectMySQL is go-sql-driver/mysql, the database the original plugin ran on.
	DialectMySQL = Dialect{
		Driver:        "mysql",
		Goose:         "mysql",
		migrationsDir: "migrations/mysql",
		insertIgnore:  "INSERT IGNORE",
		upsertOption:  "INSERT INTO options (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		dayExpr:       "DATE_FORMAT(click_timestamp, '%Y-%m-%d')",
	}
)

// DialectFor returns the dialect registered for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DialectSQLite.Driver:
		return DialectSQLite, nil
	case DialectSQLite3.Driver:
		return DialectSQLite3, nil
	case DialectMySQL.Driver:
		return DialectMySQL, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

func (d Dialect) prepareDSN(dsn string) (string, error) {
	if d.Driver == DialectMySQL.Driver {
		return mysqlDSN(dsn)
	}
	return sqliteDSN(dsn, d.pragmas, d.Driver), nil
}
