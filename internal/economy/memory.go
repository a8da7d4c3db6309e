package economy

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used for unit tests and for local
// development without Postgres. It keeps the same semantics as PostgresStore:
// balance change and ledger append are atomic under one lock, and a spend that
// would overdraw fails without side effects.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[int64]map[Currency]int64
	entries  []LedgerEntry
	nextID   int64
	users    map[int64]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[int64]map[Currency]int64),
		users:    make(map[int64]bool),
		nextID:   1,
	}
}

// AddUser registers a user id so mutations against it succeed.
func (m *MemoryStore) AddUser(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = true
	if m.balances[userID] == nil {
		m.balances[userID] = make(map[Currency]int64)
	}
}

func (m *MemoryStore) Balance(ctx context.Context, userID int64, cur Currency) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID][cur], nil
}

func (m *MemoryStore) Earn(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any, dailyCap int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.users[userID] {
		return 0, ErrUserNotFound
	}
	if dailyCap > 0 {
		if m.earnedSinceLocked(userID, cur, reason, utcMidnight())+amount > dailyCap {
			return 0, ErrDailyCapExceeded
		}
	}
	m.balances[userID][cur] += amount
	m.appendLocked(userID, cur, EntryEarn, amount, reason, metadata)
	return m.balances[userID][cur], nil
}

func (m *MemoryStore) Spend(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.users[userID] {
		return 0, ErrUserNotFound
	}
	if m.balances[userID][cur] < amount {
		return 0, ErrInsufficientFunds
	}
	m.balances[userID][cur] -= amount
	m.appendLocked(userID, cur, EntrySpend, amount, reason, metadata)
	return m.balances[userID][cur], nil
}

func (m *MemoryStore) EarnedToday(ctx context.Context, userID int64, cur Currency, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.earnedSinceLocked(userID, cur, reason, utcMidnight()), nil
}

func (m *MemoryStore) Entries(ctx context.Context, userID int64, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// newest first
	var out []LedgerEntry
	skipped := 0
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, m.entries[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// SignedSum replays the ledger for a user; used by reconciliation tests.
func (m *MemoryStore) SignedSum(userID int64, cur Currency) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.UserID == userID && e.Currency == cur {
			sum += e.Signed()
		}
	}
	return sum
}

func (m *MemoryStore) earnedSinceLocked(userID int64, cur Currency, reason string, since time.Time) int64 {
	var total int64
	for _, e := range m.entries {
		if e.UserID == userID && e.Currency == cur && e.Reason == reason && e.Type == EntryEarn && !e.CreatedAt.Before(since) {
			total += e.Amount
		}
	}
	return total
}

func (m *MemoryStore) appendLocked(userID int64, cur Currency, typ EntryType, amount int64, reason string, metadata map[string]any) {
	m.entries = append(m.entries, LedgerEntry{
		ID:        m.nextID,
		UserID:    userID,
		Currency:  cur,
		Type:      typ,
		Amount:    amount,
		Reason:    reason,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	})
	m.nextID++
}
