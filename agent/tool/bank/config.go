package bank

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	LedgerMemory   = "memory"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
	LedgerUpstash  = "upstash"
)

// Config is loaded with the BANK_ prefix.
type Config struct {
	Ledger      string        `envconfig:"LEDGER" default:"memory"`
	SQLitePath  string        `envconfig:"SQLITE_PATH" default:"data/ledger.db"`
	PostgresDSN string        `envconfig:"POSTGRES_DSN"`
	Upstash     UpstashConfig `envconfig:"UPSTASH"`
	BlockTTL    time.Duration `envconfig:"BLOCK_TTL" default:"0s"`
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Ledger) {
	case LedgerMemory, LedgerSQLite:
		return nil
	case LedgerPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("BANK_POSTGRES_DSN is required for the %s ledger", LedgerPostgres)
		}
		return nil
	case LedgerUpstash:
		if c.Upstash.URL == "" || c.Upstash.Token == "" {
			return fmt.Errorf("BANK_UPSTASH_URL and BANK_UPSTASH_TOKEN are required for the %s ledger", LedgerUpstash)
		}
		return nil
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger)
	}
}

// OpenLedger builds the ledger selected by cfg.
func OpenLedger(ctx context.Context, cfg Config) (CardLedger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Ledger) {
	case LedgerSQLite:
		return NewSQLiteLedger(cfg.SQLitePath)
	case LedgerPostgres:
		return NewPostgresLedger(ctx, cfg.PostgresDSN)
	case LedgerUpstash:
		return NewUpstashLedger(cfg.Upstash, WithTTL(cfg.BlockTTL))
	default:
		return NewMemoryLedger(), nil
	}
}
