// Package db persists picker runs and their pick records in sqlite. The
// schema is managed by embedded golang-migrate migrations.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/onset.picker/internal/monitoring"
	"github.com/banshee-data/onset.picker/internal/timeutil"
)

// DB wraps a sqlite connection.
type DB struct {
	*sql.DB
	clock timeutil.Clock
	logf  monitoring.Logger
}

// Option customises a DB.
type Option func(*DB)

// WithClock sets the clock used for retry backoff.
func WithClock(c timeutil.Clock) Option {
	return func(db *DB) { db.clock = timeutil.OrReal(c) }
}

// WithLogger sets the logger used for migration output.
func WithLogger(l monitoring.Logger) Option {
	return func(db *DB) { db.logf = monitoring.OrNop(l) }
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Open opens (creating if needed) the database at path and applies the
// connection pragmas. It does not migrate; call MigrateUp.
func Open(path string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps the pragmas in force for every statement.
	sqlDB.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("execute %q: %w", p, err)
		}
	}

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}, logf: monitoring.Nop}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// OpenMigrated opens path and migrates it to the latest schema.
func OpenMigrated(path string, opts ...Option) (*DB, error) {
	db, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const (
	maxBusyAttempts  = 5
	initialBusyDelay = 10 * time.Millisecond
)

// retryOnBusy runs fn until it succeeds, fails with an error other than
// SQLITE_BUSY, or maxBusyAttempts calls have been made. The delay doubles
// after every busy failure.
func (db *DB) retryOnBusy(fn func() error) error {
	delay := initialBusyDelay
	var err error
	for attempt := 1; attempt <= maxBusyAttempts; attempt++ {
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxBusyAttempts {
			db.clock.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("database busy after %d attempts: %w", maxBusyAttempts, err)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
