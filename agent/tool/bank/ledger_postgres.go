package bank

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type cardBlockRow struct {
	bun.BaseModel `bun:"table:card_blocks"`

	BlockRecord
}

type PostgresLedger struct {
	db *bun.DB
}

func NewPostgresLedger(ctx context.Context, dsn string) (*PostgresLedger, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres ledger: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*cardBlockRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres ledger: %w", err)
	}
	return &PostgresLedger{db: db}, nil
}

func (l *PostgresLedger) Block(ctx context.Context, rec BlockRecord) (BlockRecord, bool, error) {
	if err := rec.validate(); err != nil {
		return BlockRecord{}, false, err
	}

	row := &cardBlockRow{BlockRecord: rec}
	res, err := l.db.NewInsert().
		Model(row).
		On("CONFLICT (customer_id, card_last4) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return BlockRecord{}, false, fmt.Errorf("insert card block: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return rec, true, nil
	}

	stored := new(cardBlockRow)
	err = l.db.NewSelect().
		Model(stored).
		Where("customer_id = ?", rec.CustomerID).
		Where("card_last4 = ?", rec.CardLast4).
		Scan(ctx)
	if err != nil {
		return BlockRecord{}, false, fmt.Errorf("load card block: %w", err)
	}
	return stored.BlockRecord, false, nil
}

func (l *PostgresLedger) Close() error {
	return l.db.Close()
}
