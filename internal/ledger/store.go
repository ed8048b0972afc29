package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// Store is the system of record for accounts and their ledger history.
//
// Implementations must serialize conflicting calls for the same account so
// that two concurrent operations never both read the same stale balance
// and independently decide they can proceed.
type Store interface {
	// CreateAccount registers a new account with a zero balance.
	// Returns ErrUsernameTaken if the username is already in use.
	CreateAccount(ctx context.Context, username, passwordHash string) (model.Account, error)

	// Account returns the current account row.
	Account(ctx context.Context, id uuid.UUID) (model.Account, error)

	// AccountByUsername returns the account and its credential hash.
	// Consumed by the credential layer at login.
	AccountByUsername(ctx context.Context, username string) (model.Account, string, error)

	// UpdatePasswordHash replaces the account's credential hash.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error

	// DeleteAccount removes the account and all its ledger entries as one
	// atomic purge.
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	// AppendAndAdjustBalance atomically appends entry to the account's
	// ledger and applies cashDelta to the balance read inside the same
	// atomic unit. The entry's Seq is assigned on commit.
	//
	// Checks performed inside the atomic unit, each leaving the store
	// unchanged on failure:
	//   - the resulting cash may not go negative (ErrInsufficientFunds)
	//   - a sell may not dispose more shares of entry.Symbol than the
	//     account holds at the same snapshot (ErrInsufficientShares)
	//
	// Deposit and withdraw entries also bump the account's lifetime
	// deposit/withdraw totals within the same unit.
	AppendAndAdjustBalance(ctx context.Context, id uuid.UUID, entry model.LedgerEntry, cashDelta decimal.Decimal) (model.Account, model.LedgerEntry, error)

	// SumEntries returns per-symbol share and cost-basis sums over the
	// account's trade entries. An empty symbol selects all symbols; a
	// non-empty symbol restricts the result to that one. Read-only.
	SumEntries(ctx context.Context, id uuid.UUID, symbol string) ([]model.PositionAggregate, error)

	// Entries returns the account's full ledger history, most recent
	// first. Read-only.
	Entries(ctx context.Context, id uuid.UUID) ([]model.LedgerEntry, error)
}
