package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Ledger Types
// -----------------------------------------------------------------------------

// EntryKind identifies the operation that produced a ledger entry.
type EntryKind string

const (
	KindBuy      EntryKind = "buy"
	KindSell     EntryKind = "sell"
	KindDeposit  EntryKind = "deposit"
	KindWithdraw EntryKind = "withdraw"
)

// Valid reports whether k is one of the four known kinds.
func (k EntryKind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindDeposit, KindWithdraw:
		return true
	}
	return false
}

// IsTrade reports whether k moves shares (buy or sell).
func (k EntryKind) IsTrade() bool {
	return k == KindBuy || k == KindSell
}

// IsCash reports whether k is a pure cash movement (deposit or withdraw).
func (k EntryKind) IsCash() bool {
	return k == KindDeposit || k == KindWithdraw
}

// Account is one user's account row. Cash is a cached projection of the
// account's ledger and must equal DepositTotal - WithdrawTotal + the signed
// sum of trade totals at every committed state. It is never negative.
type Account struct {
	ID            uuid.UUID       // Primary key
	Username      string          // Unique login name
	Cash          decimal.Decimal // Current cash balance (>= 0)
	DepositTotal  decimal.Decimal // Lifetime sum of deposits
	WithdrawTotal decimal.Decimal // Lifetime sum of withdrawals
	CreatedAt     time.Time       // Registration time
}

// LedgerEntry is one immutable event in an account's history. Entries are
// append-only: once committed they are never mutated or reordered.
//
// Sign conventions:
//   - Quantity: positive = shares acquired, negative = shares disposed,
//     zero for cash events
//   - Total: trades carry +price*|qty| (buy) or -price*|qty| (sell);
//     cash events carry +amount (deposit) or -amount (withdraw)
type LedgerEntry struct {
	ID        uuid.UUID       // Primary key
	AccountID uuid.UUID       // Foreign key to Account
	Seq       int64           // Insertion order within the account (assigned on commit)
	Kind      EntryKind       // buy | sell | deposit | withdraw
	Symbol    string          // Ticker; empty for cash events
	UnitPrice decimal.Decimal // Price per share at event time; zero for cash events
	Quantity  int64           // Signed share count; zero for cash events
	Total     decimal.Decimal // Signed monetary total
	CreatedAt time.Time       // Event time
}

// -----------------------------------------------------------------------------
// Derived Types
// -----------------------------------------------------------------------------

// PositionAggregate is the per-symbol sum of an account's ledger entries.
// Derived, never stored: recomputed from the ledger on every read.
type PositionAggregate struct {
	Symbol    string          // Ticker
	Shares    int64           // Net shares held (sum of signed quantities)
	CostBasis decimal.Decimal // Net cost basis (sum of signed totals)
}

// Held reports whether the position counts as owned. Symbols with net
// shares <= 0 are excluded from portfolio views.
func (p PositionAggregate) Held() bool {
	return p.Shares > 0
}

// AvgCost returns the weighted average cost per share, or zero when the
// position is not held.
func (p PositionAggregate) AvgCost() decimal.Decimal {
	if p.Shares <= 0 {
		return decimal.Zero
	}
	return p.CostBasis.Div(decimal.NewFromInt(p.Shares))
}

// Holding is one row of a portfolio view: a held position marked to market.
// PriceUnavailable is set when the quote lookup for the symbol failed; the
// price-dependent fields are zero in that case.
type Holding struct {
	Symbol           string
	Shares           int64
	AvgCost          decimal.Decimal
	CurrentPrice     decimal.Decimal
	CurrentValue     decimal.Decimal
	UnrealizedGain   decimal.Decimal
	PriceUnavailable bool
}

// Quote is a point-in-time unit price for a symbol, expressed in the
// account's accounting currency.
type Quote struct {
	Symbol    string          // Ticker, uppercased
	UnitPrice decimal.Decimal // Price per share
	AsOf      time.Time       // When the price was observed
}
