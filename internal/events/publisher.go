package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// EntryCommitted describes one committed ledger entry and the balance it
// produced.
type EntryCommitted struct {
	EntryID   uuid.UUID       `json:"entry_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Seq       int64           `json:"seq"`
	Kind      model.EntryKind `json:"kind"`
	Symbol    string          `json:"symbol,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
	NewCash   decimal.Decimal `json:"new_cash"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntryCommitted builds the event for a committed entry and the
// resulting account state.
func NewEntryCommitted(acc model.Account, entry model.LedgerEntry) EntryCommitted {
	return EntryCommitted{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Seq:       entry.Seq,
		Kind:      entry.Kind,
		Symbol:    entry.Symbol,
		UnitPrice: entry.UnitPrice,
		Quantity:  entry.Quantity,
		Total:     entry.Total,
		NewCash:   acc.Cash,
		CreatedAt: entry.CreatedAt,
	}
}

// Publisher accepts committed-entry events. Implementations must not
// block the committing request path.
type Publisher interface {
	Publish(event EntryCommitted) bool
}

// PublisherFunc is a function adapter for Publisher.
type PublisherFunc func(event EntryCommitted) bool

func (f PublisherFunc) Publish(event EntryCommitted) bool {
	return f(event)
}
