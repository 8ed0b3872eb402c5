package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"foodcourt-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-process Ledger. Balance changes on one account are
// serialized by a per-account lock; distinct accounts never contend.
type MemoryLedger struct {
	locks *utils.KeyedMutex[int64]

	mu       sync.RWMutex
	accounts map[int64]*Account
	entries  map[string]*Entry
	journal  []*Entry

	now func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		locks:    utils.NewKeyedMutex[int64](),
		accounts: make(map[int64]*Account),
		entries:  make(map[string]*Entry),
		now:      time.Now,
	}
}

// WithClock overrides the time source used for entry timestamps.
func (m *MemoryLedger) WithClock(now func() time.Time) *MemoryLedger {
	m.now = now
	return m
}

func (m *MemoryLedger) OpenAccount(_ context.Context, userID int64, initial decimal.Decimal) (*Account, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	if initial.IsNegative() {
		return nil, ErrInvalidAmount
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if acc, ok := m.accounts[userID]; ok {
		cp := *acc
		return &cp, nil
	}

	now := m.now()
	acc := &Account{UserID: userID, Balance: initial, CreatedAt: now, UpdatedAt: now}
	m.accounts[userID] = acc
	if initial.IsPositive() {
		m.record(&Entry{
			ID:           uuid.New(),
			UserID:       userID,
			OperationID:  openOperationID(userID),
			Kind:         EntryKindCredit,
			Amount:       initial,
			Reference:    "signup",
			BalanceAfter: initial,
			CreatedAt:    now,
		})
	}

	cp := *acc
	return &cp, nil
}

func (m *MemoryLedger) GetBalance(_ context.Context, userID int64) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[userID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return acc.Balance, nil
}

func (m *MemoryLedger) Debit(_ context.Context, params MutationParams) (*Entry, error) {
	return m.mutate(EntryKindDebit, params)
}

func (m *MemoryLedger) Credit(_ context.Context, params MutationParams) (*Entry, error) {
	return m.mutate(EntryKindCredit, params)
}

func (m *MemoryLedger) mutate(kind EntryKind, params MutationParams) (*Entry, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(params.UserID)
	defer unlock()

	m.mu.RLock()
	existing, replayed := m.entries[params.OperationID]
	acc, found := m.accounts[params.UserID]
	var balance decimal.Decimal
	if found {
		balance = acc.Balance
	}
	m.mu.RUnlock()

	if replayed {
		if err := existing.sameOperation(kind, params); err != nil {
			return nil, err
		}
		cp := *existing
		return &cp, nil
	}
	if !found {
		return nil, ErrAccountNotFound
	}

	next := balance.Add(params.Amount)
	if kind == EntryKindDebit {
		if params.Amount.GreaterThan(balance) {
			return nil, ErrInsufficientFunds
		}
		next = balance.Sub(params.Amount)
	}

	now := m.now()
	entry := &Entry{
		ID:           uuid.New(),
		UserID:       params.UserID,
		OperationID:  params.OperationID,
		Kind:         kind,
		Amount:       params.Amount,
		Reference:    params.Reference,
		BalanceAfter: next,
		CreatedAt:    now,
	}

	m.mu.Lock()
	acc.Balance = next
	acc.UpdatedAt = now
	m.record(entry)
	m.mu.Unlock()

	cp := *entry
	return &cp, nil
}

func (m *MemoryLedger) GetEntry(_ context.Context, operationID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[operationID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

// record must be called with mu held.
func (m *MemoryLedger) record(e *Entry) {
	m.entries[e.OperationID] = e
	m.journal = append(m.journal, e)
}

func (m *MemoryLedger) ListDebits(_ context.Context, from, to time.Time) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.journal {
		if e.Kind != EntryKindDebit {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
