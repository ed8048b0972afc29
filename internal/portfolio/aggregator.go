package portfolio

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pranav-m-r/Webquity/internal/ledger"
	"github.com/pranav-m-r/Webquity/internal/model"
	"github.com/pranav-m-r/Webquity/internal/quote"
)

// DefaultQuoteConcurrency bounds parallel quote lookups per read.
const DefaultQuoteConcurrency = 8

// Aggregator computes portfolio read models.
type Aggregator struct {
	store       ledger.Store
	quotes      quote.Provider
	logger      *slog.Logger
	concurrency int
}

// Summary is the dashboard view: account state plus held positions and
// the total market value of the positions whose quotes resolved.
type Summary struct {
	Account     model.Account
	Holdings    []model.Holding
	MarketValue decimal.Decimal
}

// NewAggregator creates an aggregator. concurrency <= 0 selects
// DefaultQuoteConcurrency.
func NewAggregator(store ledger.Store, quotes quote.Provider, concurrency int, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultQuoteConcurrency
	}
	return &Aggregator{
		store:       store,
		quotes:      quotes,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ComputeHoldings returns the account's held positions marked to market.
// Quote lookups run concurrently with bounded parallelism; a failed
// lookup marks that one holding PriceUnavailable instead of failing the
// read.
func (a *Aggregator) ComputeHoldings(ctx context.Context, accountID uuid.UUID) ([]model.Holding, error) {
	sums, err := a.store.SumEntries(ctx, accountID, "")
	if err != nil {
		return nil, err
	}

	holdings := make([]model.Holding, 0, len(sums))
	for _, agg := range sums {
		if !agg.Held() {
			continue
		}
		holdings = append(holdings, model.Holding{
			Symbol:  agg.Symbol,
			Shares:  agg.Shares,
			AvgCost: agg.AvgCost(),
		})
	}

	costBases := make(map[string]decimal.Decimal, len(holdings))
	for _, agg := range sums {
		if agg.Held() {
			costBases[agg.Symbol] = agg.CostBasis
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range holdings {
		g.Go(func() error {
			h := &holdings[i]

			q, err := a.quotes.GetQuote(gctx, h.Symbol)
			if err != nil {
				// Read path degrades per symbol, never as a whole.
				a.logger.Warn("quote lookup failed",
					"symbol", h.Symbol,
					"err", err,
				)
				h.PriceUnavailable = true
				return nil
			}

			h.CurrentPrice = q.UnitPrice
			h.CurrentValue = q.UnitPrice.Mul(decimal.NewFromInt(h.Shares))
			h.UnrealizedGain = h.CurrentValue.Sub(costBases[h.Symbol])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return holdings, nil
}

// ComputeHistory returns the account's ledger entries, most recent first.
// A pure projection of the store.
func (a *Aggregator) ComputeHistory(ctx context.Context, accountID uuid.UUID) ([]model.LedgerEntry, error) {
	return a.store.Entries(ctx, accountID)
}

// ComputeSummary returns the account row together with its holdings and
// total market value.
func (a *Aggregator) ComputeSummary(ctx context.Context, accountID uuid.UUID) (Summary, error) {
	acc, err := a.store.Account(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}

	holdings, err := a.ComputeHoldings(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}

	total := decimal.Zero
	for _, h := range holdings {
		if !h.PriceUnavailable {
			total = total.Add(h.CurrentValue)
		}
	}

	return Summary{
		Account:     acc,
		Holdings:    holdings,
		MarketValue: total,
	}, nil
}
