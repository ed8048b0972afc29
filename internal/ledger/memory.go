package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pranav-m-r/Webquity/internal/model"
)

// MemoryStore is an in-memory Store implementation used by tests and local
// runs. Per-account serialization uses a lazily created mutex per account,
// mirroring the row lock the postgres store takes.
type MemoryStore struct {
	mu         sync.RWMutex // guards accounts and byUsername
	accounts   map[uuid.UUID]*memAccount
	byUsername map[string]uuid.UUID

	lockMu sync.Mutex // guards locks
	locks  map[uuid.UUID]*sync.Mutex
}

type memAccount struct {
	account      model.Account
	passwordHash string
	entries      []model.LedgerEntry
	nextSeq      int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[uuid.UUID]*memAccount),
		byUsername: make(map[string]uuid.UUID),
		locks:      make(map[uuid.UUID]*sync.Mutex),
	}
}

// accountLock returns the serialization mutex for one account, creating it
// on first use.
func (s *MemoryStore) accountLock(id uuid.UUID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreateAccount implements Store.
func (s *MemoryStore) CreateAccount(ctx context.Context, username, passwordHash string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[username]; exists {
		return model.Account{}, ErrUsernameTaken
	}

	acc := model.Account{
		ID:            uuid.New(),
		Username:      username,
		Cash:          decimal.Zero,
		DepositTotal:  decimal.Zero,
		WithdrawTotal: decimal.Zero,
		CreatedAt:     time.Now().UTC(),
	}
	s.accounts[acc.ID] = &memAccount{
		account:      acc,
		passwordHash: passwordHash,
		nextSeq:      1,
	}
	s.byUsername[username] = acc.ID

	return acc, nil
}

// Account implements Store.
func (s *MemoryStore) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[id]
	if !ok {
		return model.Account{}, ErrAccountNotFound
	}
	return ma.account, nil
}

// AccountByUsername implements Store.
func (s *MemoryStore) AccountByUsername(ctx context.Context, username string) (model.Account, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return model.Account{}, "", ErrAccountNotFound
	}
	ma := s.accounts[id]
	return ma.account, ma.passwordHash, nil
}

// UpdatePasswordHash implements Store.
func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ma, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	ma.passwordHash = passwordHash
	return nil
}

// DeleteAccount implements Store.
func (s *MemoryStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	// Serialize against in-flight operations on the same account.
	l := s.accountLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	ma, ok := s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	delete(s.byUsername, ma.account.Username)
	delete(s.accounts, id)

	s.lockMu.Lock()
	delete(s.locks, id)
	s.lockMu.Unlock()

	return nil
}

// AppendAndAdjustBalance implements Store.
func (s *MemoryStore) AppendAndAdjustBalance(ctx context.Context, id uuid.UUID, entry model.LedgerEntry, cashDelta decimal.Decimal) (model.Account, model.LedgerEntry, error) {
	l := s.accountLock(id)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	ma, ok := s.accounts[id]
	if !ok {
		return model.Account{}, model.LedgerEntry{}, ErrAccountNotFound
	}

	newCash := ma.account.Cash.Add(cashDelta)
	if newCash.IsNegative() {
		return model.Account{}, model.LedgerEntry{}, ErrInsufficientFunds
	}

	if entry.Kind == model.KindSell {
		var held int64
		for _, e := range ma.entries {
			if e.Symbol == entry.Symbol {
				held += e.Quantity
			}
		}
		if held+entry.Quantity < 0 {
			return model.Account{}, model.LedgerEntry{}, ErrInsufficientShares
		}
	}

	switch entry.Kind {
	case model.KindDeposit:
		ma.account.DepositTotal = ma.account.DepositTotal.Add(entry.Total)
	case model.KindWithdraw:
		ma.account.WithdrawTotal = ma.account.WithdrawTotal.Add(entry.Total.Neg())
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.AccountID = id
	entry.Seq = ma.nextSeq
	ma.nextSeq++

	ma.account.Cash = newCash
	ma.entries = append(ma.entries, entry)

	return ma.account, entry, nil
}

// SumEntries implements Store.
func (s *MemoryStore) SumEntries(ctx context.Context, id uuid.UUID, symbol string) ([]model.PositionAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}

	sums := make(map[string]*model.PositionAggregate)
	for _, e := range ma.entries {
		if e.Symbol == "" {
			continue // cash event
		}
		if symbol != "" && e.Symbol != symbol {
			continue
		}
		agg, ok := sums[e.Symbol]
		if !ok {
			agg = &model.PositionAggregate{Symbol: e.Symbol, CostBasis: decimal.Zero}
			sums[e.Symbol] = agg
		}
		agg.Shares += e.Quantity
		agg.CostBasis = agg.CostBasis.Add(e.Total)
	}

	out := make([]model.PositionAggregate, 0, len(sums))
	for _, agg := range sums {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// Entries implements Store.
func (s *MemoryStore) Entries(ctx context.Context, id uuid.UUID) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}

	// Most recent first.
	out := make([]model.LedgerEntry, len(ma.entries))
	for i, e := range ma.entries {
		out[len(ma.entries)-1-i] = e
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
