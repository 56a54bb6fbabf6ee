// Package storage implements the Swap Repository: persistent, SQLite-backed
// CRUD for Swap, Reverse Swap, Channel Creation, and Referral records
// (spec.md §2, §3), plus the persisted HD key-index counter that
// supplements the key derivation reservation (spec.md §5, §9).
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors the Swap Repository returns; the orchestrator translates
// these into the closed error taxonomy (internal/swaperrors) rather than
// matching strings.
var (
	ErrNotFound           = errors.New("record not found")
	ErrPreimageHashExists = errors.New("preimage hash already exists")
	ErrInvoiceExists      = errors.New("invoice already exists")
	ErrRoutingNodeExists  = errors.New("routing node already registered")
	ErrInvalidSwapState   = errors.New("invalid swap state")
)

// Storage is the Swap Repository.
type Storage struct {
	db *sql.DB
	mu sync.RWMutex
}

// Config holds storage configuration.
type Config struct {
	DataDir string
}

// New opens (creating if necessary) the SQLite database under cfg.DataDir
// and ensures its schema exists.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "swaps.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS swaps (
		id TEXT PRIMARY KEY,
		pair_id TEXT NOT NULL,
		order_side TEXT NOT NULL,
		preimage_hash TEXT NOT NULL UNIQUE,
		invoice TEXT UNIQUE,
		onchain_amount INTEGER,
		expected_amount INTEGER,
		percentage_fee REAL,
		base_fee INTEGER,
		accept_zero_conf INTEGER NOT NULL DEFAULT 0,
		rate REAL,
		lockup_address TEXT NOT NULL,
		lockup_transaction_id TEXT,
		timeout_block_height INTEGER NOT NULL,
		refund_public_key TEXT,
		claim_address TEXT,
		key_index INTEGER,
		redeem_script TEXT,
		referral_id TEXT,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_swaps_status ON swaps(status);
	CREATE INDEX IF NOT EXISTS idx_swaps_lockup_tx ON swaps(lockup_transaction_id);

	CREATE TABLE IF NOT EXISTS reverse_swaps (
		id TEXT PRIMARY KEY,
		pair_id TEXT NOT NULL,
		order_side TEXT NOT NULL,
		preimage_hash TEXT NOT NULL UNIQUE,
		invoice TEXT NOT NULL UNIQUE,
		miner_fee_invoice TEXT,
		onchain_amount INTEGER NOT NULL,
		hold_invoice_amount INTEGER NOT NULL,
		percentage_fee REAL,
		prepay_miner_fee_onchain_amount INTEGER,
		lockup_address TEXT NOT NULL,
		redeem_script TEXT,
		claim_public_key TEXT,
		claim_address TEXT,
		timeout_block_height INTEGER NOT NULL,
		referral_id TEXT,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reverse_swaps_status ON reverse_swaps(status);

	CREATE TABLE IF NOT EXISTS channel_creations (
		swap_id TEXT PRIMARY KEY,
		inbound_liquidity_percent INTEGER NOT NULL,
		private INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (swap_id) REFERENCES swaps(id)
	);

	CREATE TABLE IF NOT EXISTS referrals (
		id TEXT PRIMARY KEY,
		fee_share INTEGER NOT NULL,
		routing_node TEXT UNIQUE,
		api_key TEXT NOT NULL,
		api_secret TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wallet_key_indices (
		symbol TEXT PRIMARY KEY,
		next_index INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// NextKeyIndex atomically reserves and returns the next HD derivation index
// for symbol (spec.md §5, §9 "Key derivation reservation"): the counter is
// persisted so a restart cannot double-allocate. The counter only moves
// forward: an index is never issued twice, and neither DeleteSwap nor a
// failed insert after the reservation returns it to the counter.
func (s *Storage) NextKeyIndex(symbol string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO wallet_key_indices (symbol, next_index) VALUES (?, 1)
		ON CONFLICT(symbol) DO UPDATE SET next_index = next_index + 1
	`, symbol)
	if err != nil {
		return 0, err
	}

	var next int64
	row := s.db.QueryRow(`SELECT next_index FROM wallet_key_indices WHERE symbol = ?`, symbol)
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	// The row now holds the index *after* the one just reserved; the
	// reserved index is next-1.
	return uint32(next - 1), nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// isUniqueConstraint reports whether err is a SQLite UNIQUE constraint
// violation on the given column, used to translate a race at insert time
// into the same sentinel error the pre-insert existence check would have
// returned (spec.md §5, "Uniqueness enforcement").
func isUniqueConstraint(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
