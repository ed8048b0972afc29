package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

func newTestAccount(t *testing.T, s *MemoryStore) model.Account {
	t.Helper()
	acc, err := s.CreateAccount(context.Background(), "testuser01", "hash")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return acc
}

func depositEntry(amount string) (model.LedgerEntry, decimal.Decimal) {
	amt := decimal.RequireFromString(amount)
	return model.LedgerEntry{Kind: model.KindDeposit, Total: amt}, amt
}

func withdrawEntry(amount string) (model.LedgerEntry, decimal.Decimal) {
	amt := decimal.RequireFromString(amount)
	return model.LedgerEntry{Kind: model.KindWithdraw, Total: amt.Neg()}, amt.Neg()
}

func buyEntry(symbol, price string, shares int64) (model.LedgerEntry, decimal.Decimal) {
	p := decimal.RequireFromString(price)
	cost := p.Mul(decimal.NewFromInt(shares))
	return model.LedgerEntry{
		Kind:      model.KindBuy,
		Symbol:    symbol,
		UnitPrice: p,
		Quantity:  shares,
		Total:     cost,
	}, cost.Neg()
}

func sellEntry(symbol, price string, shares int64) (model.LedgerEntry, decimal.Decimal) {
	p := decimal.RequireFromString(price)
	proceeds := p.Mul(decimal.NewFromInt(shares))
	return model.LedgerEntry{
		Kind:      model.KindSell,
		Symbol:    symbol,
		UnitPrice: p,
		Quantity:  -shares,
		Total:     proceeds.Neg(),
	}, proceeds
}

func mustCommit(t *testing.T, s *MemoryStore, id uuid.UUID, entry model.LedgerEntry, delta decimal.Decimal) model.Account {
	t.Helper()
	acc, _, err := s.AppendAndAdjustBalance(context.Background(), id, entry, delta)
	if err != nil {
		t.Fatalf("AppendAndAdjustBalance failed: %v", err)
	}
	return acc
}

func TestCreateAccount_DuplicateUsername(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateAccount(ctx, "testuser01", "hash1"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	_, err := s.CreateAccount(ctx, "testuser01", "hash2")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("CreateAccount error = %v, want ErrUsernameTaken", err)
	}
}

func TestAppendAndAdjustBalance_Deposit(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)

	entry, delta := depositEntry("1000")
	got, committed, err := s.AppendAndAdjustBalance(context.Background(), acc.ID, entry, delta)
	if err != nil {
		t.Fatalf("AppendAndAdjustBalance failed: %v", err)
	}

	if !got.Cash.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Cash = %s, want 1000", got.Cash)
	}
	if !got.DepositTotal.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("DepositTotal = %s, want 1000", got.DepositTotal)
	}
	if committed.Seq != 1 {
		t.Errorf("Seq = %d, want 1", committed.Seq)
	}
	if committed.ID == uuid.Nil {
		t.Error("entry ID not assigned")
	}
	if committed.AccountID != acc.ID {
		t.Errorf("AccountID = %s, want %s", committed.AccountID, acc.ID)
	}
}

func TestAppendAndAdjustBalance_WithdrawTotals(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)

	entry, delta := depositEntry("100")
	mustCommit(t, s, acc.ID, entry, delta)
	entry, delta = withdrawEntry("30")
	got := mustCommit(t, s, acc.ID, entry, delta)

	if !got.Cash.Equal(decimal.RequireFromString("70")) {
		t.Errorf("Cash = %s, want 70", got.Cash)
	}
	if !got.WithdrawTotal.Equal(decimal.RequireFromString("30")) {
		t.Errorf("WithdrawTotal = %s, want 30", got.WithdrawTotal)
	}
}

func TestAppendAndAdjustBalance_Overdraw(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)

	entry, delta := depositEntry("50")
	mustCommit(t, s, acc.ID, entry, delta)

	entry, delta = withdrawEntry("51")
	_, _, err := s.AppendAndAdjustBalance(context.Background(), acc.ID, entry, delta)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}

	// The rejected operation must leave no trace.
	got, err := s.Account(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("Account failed: %v", err)
	}
	if !got.Cash.Equal(decimal.RequireFromString("50")) {
		t.Errorf("Cash = %s, want 50", got.Cash)
	}
	if !got.WithdrawTotal.IsZero() {
		t.Errorf("WithdrawTotal = %s, want 0", got.WithdrawTotal)
	}
	entries, err := s.Entries(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(entries))
	}
}

func TestAppendAndAdjustBalance_SellWithoutShares(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)

	entry, delta := depositEntry("1000")
	mustCommit(t, s, acc.ID, entry, delta)
	entry, delta = buyEntry("AAPL", "50", 5)
	mustCommit(t, s, acc.ID, entry, delta)

	entry, delta = sellEntry("AAPL", "50", 6)
	_, _, err := s.AppendAndAdjustBalance(context.Background(), acc.ID, entry, delta)
	if !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("error = %v, want ErrInsufficientShares", err)
	}

	sums, err := s.SumEntries(context.Background(), acc.ID, "AAPL")
	if err != nil {
		t.Fatalf("SumEntries failed: %v", err)
	}
	if len(sums) != 1 || sums[0].Shares != 5 {
		t.Errorf("sums = %+v, want 5 shares of AAPL", sums)
	}
}

func TestAppendAndAdjustBalance_SellForUnknownSymbol(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)

	entry, delta := depositEntry("1000")
	mustCommit(t, s, acc.ID, entry, delta)

	entry, delta = sellEntry("MSFT", "10", 1)
	_, _, err := s.AppendAndAdjustBalance(context.Background(), acc.ID, entry, delta)
	if !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("error = %v, want ErrInsufficientShares", err)
	}
}

func TestAppendAndAdjustBalance_SeqMonotonic(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		entry, delta := depositEntry("10")
		_, committed, err := s.AppendAndAdjustBalance(ctx, acc.ID, entry, delta)
		if err != nil {
			t.Fatalf("AppendAndAdjustBalance failed: %v", err)
		}
		if committed.Seq != want {
			t.Errorf("Seq = %d, want %d", committed.Seq, want)
		}
	}
}

func TestAppendAndAdjustBalance_UnknownAccount(t *testing.T) {
	s := NewMemoryStore()

	entry, delta := depositEntry("10")
	_, _, err := s.AppendAndAdjustBalance(context.Background(), uuid.New(), entry, delta)
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestConcurrentCommits_ExactlyOneWins(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)
	ctx := context.Background()

	entry, delta := depositEntry("100")
	mustCommit(t, s, acc.ID, entry, delta)

	// 10 concurrent buys at 60 against a 100 balance. Per-account
	// serialization must admit exactly one.
	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, d := buyEntry("AAPL", "60", 1)
			_, _, err := s.AppendAndAdjustBalance(ctx, acc.ID, e, d)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", succeeded)
	}
	if rejected != workers-1 {
		t.Errorf("rejected = %d, want %d", rejected, workers-1)
	}

	got, err := s.Account(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Account failed: %v", err)
	}
	if !got.Cash.Equal(decimal.RequireFromString("40")) {
		t.Errorf("Cash = %s, want 40", got.Cash)
	}
}

func TestSumEntries(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)

	entry, delta := depositEntry("10000")
	mustCommit(t, s, acc.ID, entry, delta)
	entry, delta = buyEntry("MSFT", "100", 3)
	mustCommit(t, s, acc.ID, entry, delta)
	entry, delta = buyEntry("AAPL", "50", 10)
	mustCommit(t, s, acc.ID, entry, delta)
	entry, delta = sellEntry("AAPL", "55", 4)
	mustCommit(t, s, acc.ID, entry, delta)

	sums, err := s.SumEntries(context.Background(), acc.ID, "")
	if err != nil {
		t.Fatalf("SumEntries failed: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("len(sums) = %d, want 2", len(sums))
	}

	// Sorted by symbol: AAPL then MSFT. Cash events never appear.
	if sums[0].Symbol != "AAPL" || sums[0].Shares != 6 {
		t.Errorf("sums[0] = %+v, want AAPL with 6 shares", sums[0])
	}
	wantBasis := decimal.RequireFromString("280") // 500 bought - 220 sold
	if !sums[0].CostBasis.Equal(wantBasis) {
		t.Errorf("AAPL CostBasis = %s, want %s", sums[0].CostBasis, wantBasis)
	}
	if sums[1].Symbol != "MSFT" || sums[1].Shares != 3 {
		t.Errorf("sums[1] = %+v, want MSFT with 3 shares", sums[1])
	}

	filtered, err := s.SumEntries(context.Background(), acc.ID, "MSFT")
	if err != nil {
		t.Fatalf("SumEntries(MSFT) failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Symbol != "MSFT" {
		t.Errorf("filtered = %+v, want only MSFT", filtered)
	}
}

func TestEntries_MostRecentFirst(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)

	entry, delta := depositEntry("1000")
	mustCommit(t, s, acc.ID, entry, delta)
	entry, delta = buyEntry("AAPL", "50", 2)
	mustCommit(t, s, acc.ID, entry, delta)
	entry, delta = withdrawEntry("100")
	mustCommit(t, s, acc.ID, entry, delta)

	entries, err := s.Entries(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	for i, wantSeq := range []int64{3, 2, 1} {
		if entries[i].Seq != wantSeq {
			t.Errorf("entries[%d].Seq = %d, want %d", i, entries[i].Seq, wantSeq)
		}
	}
	if entries[0].Kind != model.KindWithdraw {
		t.Errorf("entries[0].Kind = %s, want withdraw", entries[0].Kind)
	}
}

func TestUpdatePasswordHash(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)
	ctx := context.Background()

	if err := s.UpdatePasswordHash(ctx, acc.ID, "newhash"); err != nil {
		t.Fatalf("UpdatePasswordHash failed: %v", err)
	}
	_, hash, err := s.AccountByUsername(ctx, acc.Username)
	if err != nil {
		t.Fatalf("AccountByUsername failed: %v", err)
	}
	if hash != "newhash" {
		t.Errorf("hash = %q, want %q", hash, "newhash")
	}

	if err := s.UpdatePasswordHash(ctx, uuid.New(), "x"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	s := NewMemoryStore()
	acc := newTestAccount(t, s)
	ctx := context.Background()

	if err := s.DeleteAccount(ctx, acc.ID); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if _, err := s.Account(ctx, acc.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Account error = %v, want ErrAccountNotFound", err)
	}
	if _, _, err := s.AccountByUsername(ctx, acc.Username); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("AccountByUsername error = %v, want ErrAccountNotFound", err)
	}

	// The username is free again.
	if _, err := s.CreateAccount(ctx, acc.Username, "hash"); err != nil {
		t.Errorf("CreateAccount after delete failed: %v", err)
	}
}
