package bank

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS card_blocks (
	customer_id     TEXT NOT NULL,
	card_last4      TEXT NOT NULL,
	idempotency_key TEXT NOT NULL,
	reference_id    TEXT NOT NULL,
	blocked_at      TEXT NOT NULL,
	PRIMARY KEY (customer_id, card_last4)
);`

type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) the ledger at path. ":memory:" keeps it
// in process memory.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	// one connection keeps ":memory:" a single database and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite ledger: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Block(ctx context.Context, rec BlockRecord) (BlockRecord, bool, error) {
	if err := rec.validate(); err != nil {
		return BlockRecord{}, false, err
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO card_blocks (customer_id, card_last4, idempotency_key, reference_id, blocked_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.CustomerID, rec.CardLast4, rec.IdempotencyKey, rec.ReferenceID, rec.BlockedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return BlockRecord{}, false, fmt.Errorf("insert card block: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return BlockRecord{}, false, fmt.Errorf("insert card block: %w", err)
	}
	if n == 1 {
		return rec, true, nil
	}

	var (
		stored    BlockRecord
		blockedAt string
	)
	err = l.db.QueryRowContext(ctx,
		`SELECT customer_id, card_last4, idempotency_key, reference_id, blocked_at
		 FROM card_blocks WHERE customer_id = ? AND card_last4 = ?`,
		rec.CustomerID, rec.CardLast4,
	).Scan(&stored.CustomerID, &stored.CardLast4, &stored.IdempotencyKey, &stored.ReferenceID, &blockedAt)
	if err != nil {
		return BlockRecord{}, false, fmt.Errorf("load card block: %w", err)
	}
	stored.BlockedAt, _ = time.Parse(time.RFC3339Nano, blockedAt)
	return stored, false, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
