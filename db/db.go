package db

import (
	"context"
	"database/sql"
	"log"
	"time"

	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

// MaxTxRetries bounds how often a conflicting transaction is re-run
// before the failure is surfaced to the caller.
const MaxTxRetries = 3

// Open opens (or creates) the SQLite database at path and runs migrations.
// Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Configure connection pool for concurrent access
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if path == ":memory:" {
		// A pool over :memory: would open separate empty databases.
		sqlDB.SetMaxOpenConns(1)
	}

	// Try to enable WAL mode
	var journalMode string
	if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	}

	// Optimize PRAGMAs for the concurrent federation workload
	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA cache_size = -64000")
	sqlDB.Exec("PRAGMA temp_store = MEMORY")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")
	sqlDB.Exec("PRAGMA foreign_keys = ON")

	database := &DB{db: sqlDB}

	if err := database.Migrate(); err != nil {
		return nil, err
	}

	return database, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.db.Close()
}

// wrapTransaction runs the given function within a transaction,
// spinning on SQLITE_BUSY.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

// WithRetry re-runs fn up to attempts times while it fails with a
// retryable conflict (unique constraint races from concurrent duplicate
// Creates, or a busy database). Non-retryable errors and exhaustion are
// returned to the caller.
func WithRetry(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		log.Printf("retryable storage conflict (attempt %d/%d): %v", i+1, attempts, err)
	}
	return err
}

// IsRetryable reports whether err is a transient SQLite conflict.
func IsRetryable(err error) bool {
	serr, ok := err.(*sqlite.Error)
	if !ok {
		return false
	}
	switch serr.Code() {
	case sqlitelib.SQLITE_BUSY,
		sqlitelib.SQLITE_LOCKED,
		sqlitelib.SQLITE_CONSTRAINT,
		sqlitelib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
