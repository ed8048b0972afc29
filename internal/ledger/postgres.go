package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// PostgresStore is the durable Store implementation. The account row is
// locked with SELECT ... FOR UPDATE inside each atomic operation, which
// serializes conflicting operations per account while leaving other
// accounts fully parallel.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
    id             UUID PRIMARY KEY,
    username       TEXT NOT NULL UNIQUE,
    password_hash  TEXT NOT NULL,
    cash           NUMERIC(20,4) NOT NULL DEFAULT 0 CHECK (cash >= 0),
    deposit_total  NUMERIC(20,4) NOT NULL DEFAULT 0,
    withdraw_total NUMERIC(20,4) NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id         UUID PRIMARY KEY,
    account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    seq        BIGINT NOT NULL,
    kind       TEXT NOT NULL,
    symbol     TEXT NOT NULL DEFAULT '',
    unit_price NUMERIC(20,4) NOT NULL DEFAULT 0,
    quantity   BIGINT NOT NULL DEFAULT 0,
    total      NUMERIC(20,4) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (account_id, seq)
);

CREATE INDEX IF NOT EXISTS ledger_entries_account_symbol_idx
    ON ledger_entries (account_id, symbol);
`

// EnsureSchema creates the accounts and ledger_entries tables if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return storageErr("ensure schema", err)
	}
	return nil
}

// CreateAccount implements Store.
func (s *PostgresStore) CreateAccount(ctx context.Context, username, passwordHash string) (model.Account, error) {
	acc := model.Account{
		ID:            uuid.New(),
		Username:      username,
		Cash:          decimal.Zero,
		DepositTotal:  decimal.Zero,
		WithdrawTotal: decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, username, password_hash, cash, deposit_total, withdraw_total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acc.ID, acc.Username, passwordHash, acc.Cash, acc.DepositTotal, acc.WithdrawTotal, acc.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Account{}, ErrUsernameTaken
		}
		return model.Account{}, storageErr("create account", err)
	}
	return acc, nil
}

// Account implements Store.
func (s *PostgresStore) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	acc := model.Account{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT username, cash, deposit_total, withdraw_total, created_at
		 FROM accounts WHERE id = $1`, id,
	).Scan(&acc.Username, &acc.Cash, &acc.DepositTotal, &acc.WithdrawTotal, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, storageErr("read account", err)
	}
	return acc, nil
}

// AccountByUsername implements Store.
func (s *PostgresStore) AccountByUsername(ctx context.Context, username string) (model.Account, string, error) {
	acc := model.Account{Username: username}
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT id, password_hash, cash, deposit_total, withdraw_total, created_at
		 FROM accounts WHERE username = $1`, username,
	).Scan(&acc.ID, &hash, &acc.Cash, &acc.DepositTotal, &acc.WithdrawTotal, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, "", ErrAccountNotFound
		}
		return model.Account{}, "", storageErr("read account by username", err)
	}
	return acc, hash, nil
}

// UpdatePasswordHash implements Store.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return storageErr("update password hash", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeleteAccount implements Store.
func (s *PostgresStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin delete account", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ledger_entries WHERE account_id = $1`, id); err != nil {
		return storageErr("purge ledger entries", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit delete account", err)
	}
	return nil
}

// AppendAndAdjustBalance implements Store.
func (s *PostgresStore) AppendAndAdjustBalance(ctx context.Context, id uuid.UUID, entry model.LedgerEntry, cashDelta decimal.Decimal) (model.Account, model.LedgerEntry, error) {
	var zeroAcc model.Account
	var zeroEntry model.LedgerEntry

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return zeroAcc, zeroEntry, storageErr("begin commit", err)
	}
	defer tx.Rollback(ctx)

	// Row lock: serializes all operations on this account until commit.
	acc := model.Account{ID: id}
	err = tx.QueryRow(ctx,
		`SELECT username, cash, deposit_total, withdraw_total, created_at
		 FROM accounts WHERE id = $1 FOR UPDATE`, id,
	).Scan(&acc.Username, &acc.Cash, &acc.DepositTotal, &acc.WithdrawTotal, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroAcc, zeroEntry, ErrAccountNotFound
		}
		return zeroAcc, zeroEntry, storageErr("lock account", err)
	}

	newCash := acc.Cash.Add(cashDelta)
	if newCash.IsNegative() {
		return zeroAcc, zeroEntry, ErrInsufficientFunds
	}

	if entry.Kind == model.KindSell {
		var held int64
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(quantity), 0) FROM ledger_entries
			 WHERE account_id = $1 AND symbol = $2`, id, entry.Symbol,
		).Scan(&held)
		if err != nil {
			return zeroAcc, zeroEntry, storageErr("sum held shares", err)
		}
		if held+entry.Quantity < 0 {
			return zeroAcc, zeroEntry, ErrInsufficientShares
		}
	}

	switch entry.Kind {
	case model.KindDeposit:
		acc.DepositTotal = acc.DepositTotal.Add(entry.Total)
	case model.KindWithdraw:
		acc.WithdrawTotal = acc.WithdrawTotal.Add(entry.Total.Neg())
	}
	acc.Cash = newCash

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.AccountID = id

	// The row lock makes MAX(seq)+1 safe within this account.
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM ledger_entries WHERE account_id = $1`, id,
	).Scan(&entry.Seq)
	if err != nil {
		return zeroAcc, zeroEntry, storageErr("next sequence", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_entries (id, account_id, seq, kind, symbol, unit_price, quantity, total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.AccountID, entry.Seq, string(entry.Kind), entry.Symbol,
		entry.UnitPrice, entry.Quantity, entry.Total, entry.CreatedAt,
	)
	if err != nil {
		return zeroAcc, zeroEntry, storageErr("append entry", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET cash = $2, deposit_total = $3, withdraw_total = $4 WHERE id = $1`,
		id, acc.Cash, acc.DepositTotal, acc.WithdrawTotal,
	)
	if err != nil {
		return zeroAcc, zeroEntry, storageErr("update balance", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return zeroAcc, zeroEntry, storageErr("commit", err)
	}
	return acc, entry, nil
}

// SumEntries implements Store.
func (s *PostgresStore) SumEntries(ctx context.Context, id uuid.UUID, symbol string) ([]model.PositionAggregate, error) {
	query := `SELECT symbol, COALESCE(SUM(quantity), 0), COALESCE(SUM(total), 0)
	          FROM ledger_entries
	          WHERE account_id = $1 AND symbol <> ''`
	args := []any{id}
	if symbol != "" {
		query += ` AND symbol = $2`
		args = append(args, symbol)
	}
	query += ` GROUP BY symbol ORDER BY symbol`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("sum entries", err)
	}
	defer rows.Close()

	var out []model.PositionAggregate
	for rows.Next() {
		var agg model.PositionAggregate
		if err := rows.Scan(&agg.Symbol, &agg.Shares, &agg.CostBasis); err != nil {
			return nil, storageErr("scan position sum", err)
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate position sums", err)
	}
	return out, nil
}

// Entries implements Store.
func (s *PostgresStore) Entries(ctx context.Context, id uuid.UUID) ([]model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, seq, kind, symbol, unit_price, quantity, total, created_at
		 FROM ledger_entries WHERE account_id = $1 ORDER BY seq DESC`, id)
	if err != nil {
		return nil, storageErr("read entries", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		e := model.LedgerEntry{AccountID: id}
		var kind string
		if err := rows.Scan(&e.ID, &e.Seq, &kind, &e.Symbol, &e.UnitPrice, &e.Quantity, &e.Total, &e.CreatedAt); err != nil {
			return nil, storageErr("scan entry", err)
		}
		e.Kind = model.EntryKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate entries", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
