package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/events"
	"github.com/pranav-m-r/Webquity/internal/ledger"
	"github.com/pranav-m-r/Webquity/internal/model"
	"github.com/pranav-m-r/Webquity/internal/quote"
)

// Service applies buy, sell, deposit and withdraw operations. Prices are
// fetched before entering the atomic commit so a slow feed never holds an
// account's serialization lock; the fetched quote is then used for the
// whole operation.
type Service struct {
	store     ledger.Store
	quotes    quote.Provider
	publisher events.Publisher // optional, best-effort
	logger    *slog.Logger
}

// Result is a committed operation: the new account state and the entry
// that was appended.
type Result struct {
	Account model.Account
	Entry   model.LedgerEntry
}

// NewService creates a mutator. publisher may be nil.
func NewService(store ledger.Store, quotes quote.Provider, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		quotes:    quotes,
		publisher: publisher,
		logger:    logger,
	}
}

// Buy purchases shares of symbol at the current market price.
func (s *Service) Buy(ctx context.Context, accountID uuid.UUID, symbol string, shares int64) (Result, error) {
	if symbol == "" {
		return Result{}, ledger.Validationf("symbol", "must not be empty")
	}
	if shares <= 0 {
		return Result{}, ledger.Validationf("shares", "must be a positive integer, got %d", shares)
	}

	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return Result{}, err
	}

	cost := q.UnitPrice.Mul(decimal.NewFromInt(shares))
	entry := model.LedgerEntry{
		ID:        uuid.New(),
		Kind:      model.KindBuy,
		Symbol:    q.Symbol,
		UnitPrice: q.UnitPrice,
		Quantity:  shares,
		Total:     cost,
		CreatedAt: time.Now().UTC(),
	}

	return s.commit(ctx, accountID, entry, cost.Neg())
}

// Sell disposes shares of symbol at the current market price. The
// held-share check happens inside the same atomic unit as the cash update.
func (s *Service) Sell(ctx context.Context, accountID uuid.UUID, symbol string, shares int64) (Result, error) {
	if symbol == "" {
		return Result{}, ledger.Validationf("symbol", "must not be empty")
	}
	if shares <= 0 {
		return Result{}, ledger.Validationf("shares", "must be a positive integer, got %d", shares)
	}

	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return Result{}, err
	}

	proceeds := q.UnitPrice.Mul(decimal.NewFromInt(shares))
	entry := model.LedgerEntry{
		ID:        uuid.New(),
		Kind:      model.KindSell,
		Symbol:    q.Symbol,
		UnitPrice: q.UnitPrice,
		Quantity:  -shares,
		Total:     proceeds.Neg(),
		CreatedAt: time.Now().UTC(),
	}

	return s.commit(ctx, accountID, entry, proceeds)
}

// Deposit adds cash to the account and bumps the lifetime deposit total.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, ledger.Validationf("amount", "must be positive, got %s", amount)
	}

	entry := model.LedgerEntry{
		ID:        uuid.New(),
		Kind:      model.KindDeposit,
		Total:     amount,
		CreatedAt: time.Now().UTC(),
	}

	return s.commit(ctx, accountID, entry, amount)
}

// Withdraw removes cash from the account and bumps the lifetime withdraw
// total. The overdraw check happens inside the atomic unit.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, ledger.Validationf("amount", "must be positive, got %s", amount)
	}

	entry := model.LedgerEntry{
		ID:        uuid.New(),
		Kind:      model.KindWithdraw,
		Total:     amount.Neg(),
		CreatedAt: time.Now().UTC(),
	}

	return s.commit(ctx, accountID, entry, amount.Neg())
}

// DeleteAccount purges the account and its ledger history.
func (s *Service) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("account deleted", "account_id", accountID)
	return nil
}

// commit runs the single atomic primitive and emits the committed event.
func (s *Service) commit(ctx context.Context, accountID uuid.UUID, entry model.LedgerEntry, cashDelta decimal.Decimal) (Result, error) {
	acc, committed, err := s.store.AppendAndAdjustBalance(ctx, accountID, entry, cashDelta)
	if err != nil {
		return Result{}, err
	}

	s.logger.Debug("operation committed",
		"account_id", accountID,
		"kind", committed.Kind,
		"symbol", committed.Symbol,
		"total", committed.Total,
		"cash", acc.Cash,
	)

	if s.publisher != nil {
		if !s.publisher.Publish(events.NewEntryCommitted(acc, committed)) {
			s.logger.Warn("ledger event dropped",
				"entry_id", committed.ID,
				"account_id", accountID,
			)
		}
	}

	return Result{Account: acc, Entry: committed}, nil
}
