package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/prize-pool-ledger/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
	"github.com/sheikh-saqib/prize-pool-ledger/internal/units"
)

// amounts exceed int64, so they travel as NUMERIC(20,0) through decimal.Decimal
const schema = `
CREATE TABLE IF NOT EXISTS pool_meta (
	id            SMALLINT PRIMARY KEY CHECK (id = 1),
	administrator TEXT NOT NULL,
	pooled        NUMERIC(20,0) NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS credits (
	identity TEXT PRIMARY KEY,
	amount   NUMERIC(20,0) NOT NULL
);
CREATE TABLE IF NOT EXISTS receipts (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	caller     TEXT NOT NULL,
	amount     NUMERIC(20,0) NOT NULL,
	credit     NUMERIC(20,0) NOT NULL,
	pooled     NUMERIC(20,0) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// EnsureSchema creates the tables if they do not exist yet.
func (p *PostgresLedgerStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) LoadState(ctx context.Context) (models.State, error) {
	state := models.State{Credits: make(map[models.Identity]uint64)}

	const metaQuery = `SELECT administrator, pooled FROM pool_meta WHERE id = 1`

	var admin string
	var pooled decimal.Decimal
	err := p.db.QueryRowContext(ctx, metaQuery).Scan(&admin, &pooled)
	if err == sql.ErrNoRows {
		return state, nil
	}
	if err != nil {
		return models.State{}, err
	}
	state.Administrator = models.Identity(admin)
	if state.Pooled, err = units.FromDecimal(pooled, 0); err != nil {
		return models.State{}, fmt.Errorf("pooled fund: %w", err)
	}

	const creditsQuery = `SELECT identity, amount FROM credits`

	rows, err := p.db.QueryContext(ctx, creditsQuery)
	if err != nil {
		return models.State{}, err
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
	if err := rows.Err(); err != nil {
		return models.State{}, err
	}
	return state, nil
}

// SaveAdministrator binds the administrator once; later calls keep the first one.
func (p *PostgresLedgerStore) SaveAdministrator(ctx context.Context, admin models.Identity) error {
	const query = `INSERT INTO pool_meta (id, administrator, pooled) VALUES (1, $1, 0)
	ON CONFLICT (id) DO NOTHING`

	_, err := p.db.ExecContext(ctx, query, string(admin))
	return err
}

func (p *PostgresLedgerStore) saveCredit(ctx context.Context, dbTx *sql.Tx, id models.Identity, credit uint64) error {
	const query = `INSERT INTO credits (identity, amount) VALUES ($1, $2)
	ON CONFLICT (identity) DO UPDATE SET amount = EXCLUDED.amount`

	_, err := dbTx.ExecContext(ctx, query, string(id), units.ToDecimal(credit, 0))
	return err
}

func (p *PostgresLedgerStore) savePooled(ctx context.Context, dbTx *sql.Tx, pooled uint64) error {
	const query = `UPDATE pool_meta SET pooled = $1 WHERE id = 1`

	res, err := dbTx.ExecContext(ctx, query, units.ToDecimal(pooled, 0))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("pool is not deployed")
	}
	return nil
}

func (p *PostgresLedgerStore) insertReceipt(ctx context.Context, dbTx *sql.Tx, r models.Receipt) error {
	const query = `INSERT INTO receipts (id, kind, caller, amount, credit, pooled, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := dbTx.ExecContext(ctx, query, r.ID, string(r.Kind), string(r.Caller),
		units.ToDecimal(r.Amount, 0), units.ToDecimal(r.Credit, 0), units.ToDecimal(r.Pooled, 0), r.CreatedAt)
	return err
}

// SaveReceipt writes the credit, the pooled fund and the receipt in one transaction.
func (p *PostgresLedgerStore) SaveReceipt(ctx context.Context, receipt models.Receipt) (err error) {

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if receipt.Kind == models.CallDeposit {
		if err = p.saveCredit(ctx, dbTx, receipt.Caller, receipt.Credit); err != nil {
			return err
		}
	}

	if err = p.savePooled(ctx, dbTx, receipt.Pooled); err != nil {
		return err
	}

	if err = p.insertReceipt(ctx, dbTx, receipt); err != nil {
		return err
	}
	return dbTx.Commit()
}

// RevertReceipt deletes the receipt and restores the pooled fund in one transaction.
func (p *PostgresLedgerStore) RevertReceipt(ctx context.Context, id string, pooled uint64) (err error) {

	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	const query = `DELETE FROM receipts WHERE id = $1`

	res, err := dbTx.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
		err = fmt.Errorf("receipt %s not found", id)
		return err
	}

	if err = p.savePooled(ctx, dbTx, pooled); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (p *PostgresLedgerStore) GetReceipts(ctx context.Context) ([]models.Receipt, error) {

	const query = `SELECT id, kind, caller, amount, credit, pooled, created_at FROM receipts ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var receipts []models.Receipt

	for rows.Next() {
		var (
			r                      models.Receipt
			kind, caller           string
			amount, credit, pooled decimal.Decimal
		)
		err := rows.Scan(&r.ID, &kind, &caller, &amount, &credit, &pooled, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		r.Kind = models.CallKind(kind)
		r.Caller = models.Identity(caller)
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

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return receipts, nil
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
