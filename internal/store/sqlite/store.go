// Package sqlite is the persistence collaborator: trading services, their
// transactions, and cached daily prices live in a single-writer SQLite
// database. The strategy executor's all-or-nothing boundary is WithTx.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"daytraderv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/daytrader.db"
}

// Store wraps the database handle. A single write connection serializes
// mutations, which is what keeps concurrent strategy runs safe.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database with WAL mode and the schema. The
// parent directory is created if it does not exist yet.
func New(cfg Config) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer connection pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trading_services (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id            INTEGER NOT NULL DEFAULT 0,
			name               TEXT    NOT NULL DEFAULT '',
			stock_symbol       TEXT    NOT NULL,
			state              TEXT    NOT NULL DEFAULT 'INACTIVE',
			mode               TEXT    NOT NULL DEFAULT 'BUY',
			is_active          INTEGER NOT NULL DEFAULT 1,
			initial_balance    TEXT    NOT NULL,
			current_balance    TEXT    NOT NULL,
			minimum_balance    TEXT    NOT NULL DEFAULT '0',
			allocation_percent REAL    NOT NULL DEFAULT 0,
			buy_threshold      REAL    NOT NULL DEFAULT 0,
			sell_threshold     REAL    NOT NULL DEFAULT 0,
			current_shares     INTEGER NOT NULL DEFAULT 0,
			buy_count          INTEGER NOT NULL DEFAULT 0,
			sell_count         INTEGER NOT NULL DEFAULT 0,
			total_gain_loss    TEXT    NOT NULL DEFAULT '0',
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS trading_transactions (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			service_id     INTEGER NOT NULL REFERENCES trading_services(id),
			stock_symbol   TEXT    NOT NULL,
			shares         INTEGER NOT NULL,
			state          TEXT    NOT NULL DEFAULT 'OPEN',
			purchase_price TEXT    NOT NULL,
			sale_price     TEXT,
			gain_loss      TEXT,
			purchase_date  DATETIME NOT NULL,
			sale_date      DATETIME,
			notes          TEXT    NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_service ON trading_transactions(service_id, state);

		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL NOT NULL,
			volume INTEGER,
			PRIMARY KEY (symbol, date)
		);
	`)
	return err
}

// storeTx implements model.StoreTx over one in-flight sql.Tx.
type storeTx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a single transaction. Any error from fn (or from
// commit) rolls back every mutation made through the StoreTx.
func (s *Store) WithTx(ctx context.Context, fn func(tx model.StoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&storeTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("[sqlite] rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
