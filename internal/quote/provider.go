package quote

import (
	"context"
	"errors"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// ErrUnavailable is returned when no usable price can be resolved for a
// symbol: the feed failed, timed out, or does not know the symbol.
var ErrUnavailable = errors.New("quote unavailable")

// Provider resolves a symbol to a current unit price in the accounting
// currency. Implementations must respect ctx deadlines; a failed lookup
// surfaces as an error wrapping ErrUnavailable.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
}

// ProviderFunc is a function adapter for Provider.
type ProviderFunc func(ctx context.Context, symbol string) (model.Quote, error)

func (f ProviderFunc) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	return f(ctx, symbol)
}

// Fallback returns a Provider that consults primary first and falls back
// to secondary when primary cannot resolve the symbol.
func Fallback(primary, secondary Provider) Provider {
	return ProviderFunc(func(ctx context.Context, symbol string) (model.Quote, error) {
		q, err := primary.GetQuote(ctx, symbol)
		if err == nil {
			return q, nil
		}
		return secondary.GetQuote(ctx, symbol)
	})
}
