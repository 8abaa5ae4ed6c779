package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"alarmsync/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB owns the durable operation queue. All state transitions go through
// its methods; callers only ever see copies of stored operations.
type DB struct {
	db     *sql.DB
	logger *zerolog.Logger

	mu     sync.Mutex
	counts models.QueueCounts
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	d := &DB{db: db, logger: logger}

	// Operations stuck in flight from a previous crash go back to pending;
	// the backend delivery may or may not have landed, but the queue must
	// never silently lose work, so they are retried.
	if _, err := db.Exec(
		`UPDATE operations SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE state = ?`,
		models.StatePending, models.StateInFlight,
	); err != nil {
		return nil, fmt.Errorf("failed to recover in-flight operations: %w", err)
	}

	if err := d.reloadCounts(); err != nil {
		return nil, err
	}

	logger.Info().Str("path", path).Msg("operation queue opened")
	return d, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operations (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT UNIQUE NOT NULL,
            kind TEXT NOT NULL,
            payload BLOB,
            state TEXT NOT NULL DEFAULT 'pending',
            attempts INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            enqueued_at DATETIME NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_operations_state ON operations(state)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_id ON operations(id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (d *DB) reloadCounts() error {
	rows, err := d.db.Query(`SELECT state, COUNT(*) FROM operations GROUP BY state`)
	if err != nil {
		return fmt.Errorf("failed to load queue counts: %w", err)
	}
	defer rows.Close()

	var counts models.QueueCounts
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return fmt.Errorf("failed to scan queue counts: %w", err)
		}
		switch models.OperationState(state) {
		case models.StatePending:
			counts.Pending = n
		case models.StateInFlight:
			counts.InFlight = n
		case models.StateFailed:
			counts.Failed = n
		}
	}

	d.mu.Lock()
	d.counts = counts
	d.mu.Unlock()
	return rows.Err()
}

func (d *DB) adjustCounts(fn func(c *models.QueueCounts)) {
	d.mu.Lock()
	fn(&d.counts)
	d.mu.Unlock()
}

func (d *DB) Close() error {
	return d.db.Close()
}
