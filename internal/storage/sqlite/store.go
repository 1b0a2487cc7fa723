// Package sqlite provides a file-backed LedgerStore on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/prize-pool-ledger/internal/interfaces"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/units"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile    = "prizepool.db"
	maxBusyTimeoutMs = 5000
)

// amounts are TEXT: an INTEGER column would truncate values above int64
const schema = `
CREATE TABLE IF NOT EXISTS pool_meta (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	administrator TEXT NOT NULL,
	pooled        TEXT NOT NULL DEFAULT '0'
);
CREATE TABLE IF NOT EXISTS credits (
	identity TEXT PRIMARY KEY,
	amount   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS receipts (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	caller     TEXT NOT NULL,
	amount     TEXT NOT NULL,
	credit     TEXT NOT NULL,
	pooled     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// Store persists the pool to a single SQLite database file.
type Store struct {
	db   *sql.DB
	file string
}

// NewStore opens (or creates) the database at filePath and ensures the schema.
func NewStore(ctx context.Context, filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	s := &Store{db: db, file: absPath}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", maxBusyTimeoutMs)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Path returns the absolute database file path.
func (s *Store) Path() string {
	return s.file
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadState(ctx context.Context) (models.State, error) {
	state := models.State{Credits: make(map[models.Identity]uint64)}

	var admin string
	var pooled decimal.Decimal
	err := s.db.QueryRowContext(ctx, `SELECT administrator, pooled FROM pool_meta WHERE id = 1`).Scan(&admin, &pooled)
	if err == sql.ErrNoRows {
		return state, nil
	}
	if err != nil {
		return models.State{}, fmt.Errorf("load pool meta: %w", err)
	}
	state.Administrator = models.Identity(admin)
	if state.Pooled, err = units.FromDecimal(pooled, 0); err != nil {
		return models.State{}, fmt.Errorf("pooled fund: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT identity, amount FROM credits`)
	if err != nil {
		return models.State{}, fmt.Errorf("load credits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var amount decimal.Decimal
		if err := rows.Scan(&id, &amount); err != nil {
			return models.State{}, err
		}
		credit, err := units.FromDecimal(amount, 0)
		if err != nil {
			return models.State{}, fmt.Errorf("credit for %s: %w", id, err)
		}
		state.Credits[models.Identity(id)] = credit
	}
	return state, rows.Err()
}

func (s *Store) SaveAdministrator(ctx context.Context, admin models.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pool_meta (id, administrator, pooled) VALUES (1, ?, '0') ON CONFLICT (id) DO NOTHING`,
		string(admin))
	if err != nil {
		return fmt.Errorf("save administrator: %w", err)
	}
	return nil
}

func (s *Store) SaveReceipt(ctx context.Context, r models.Receipt) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if r.Kind == models.CallDeposit {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO credits (identity, amount) VALUES (?, ?)
			 ON CONFLICT (identity) DO UPDATE SET amount = excluded.amount`,
			string(r.Caller), units.Format(r.Credit, 0))
		if err != nil {
			return fmt.Errorf("save credit: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE pool_meta SET pooled = ? WHERE id = 1`, units.Format(r.Pooled, 0))
	if err != nil {
		return fmt.Errorf("save pooled fund: %w", err)
	}
	if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
		err = fmt.Errorf("pool is not deployed")
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (id, kind, caller, amount, credit, pooled, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), string(r.Caller),
		units.Format(r.Amount, 0), units.Format(r.Credit, 0), units.Format(r.Pooled, 0),
		r.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return tx.Commit()
}

func (s *Store) RevertReceipt(ctx context.Context, id string, pooled uint64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
		err = fmt.Errorf("receipt %s not found", id)
		return err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE pool_meta SET pooled = ? WHERE id = 1`, units.Format(pooled, 0)); err != nil {
		return fmt.Errorf("restore pooled fund: %w", err)
	}
	return tx.Commit()
}

func (s *Store) GetReceipts(ctx context.Context) ([]models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, caller, amount, credit, pooled, created_at FROM receipts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		var (
			r                      models.Receipt
			kind, caller           string
			amount, credit, pooled decimal.Decimal
			createdAt              int64
		)
		if err := rows.Scan(&r.ID, &kind, &caller, &amount, &credit, &pooled, &createdAt); err != nil {
			return nil, err
		}
		r.Kind = models.CallKind(kind)
		r.Caller = models.Identity(caller)
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		if r.Amount, err = units.FromDecimal(amount, 0); err != nil {
			return nil, err
		}
		if r.Credit, err = units.FromDecimal(credit, 0); err != nil {
			return nil, err
		}
		if r.Pooled, err = units.FromDecimal(pooled, 0); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

var _ interfaces.LedgerStore = (*Store)(nil)
