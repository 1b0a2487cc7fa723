// Package storage selects and opens the LedgerStore backend.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/prize-pool-ledger/internal/interfaces"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/storage/sqlite"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver      string
	DatabaseURL string // postgres connection string
	SQLitePath  string
}

// Open returns the configured store and a function releasing its resources.
func Open(ctx context.Context, opts Options) (interfaces.LedgerStore, func() error, error) {
	noop := func() error { return nil }

	switch opts.Driver {
	case "", DriverMemory:
		return memory.NewMemoryLedgerStore(), noop, nil

	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("postgres store needs DATABASE_URL")
		}
		db, err := sql.Open("postgres", opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := postgres.NewPostgresLedgerStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	case DriverSQLite:
		store, err := sqlite.NewStore(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
