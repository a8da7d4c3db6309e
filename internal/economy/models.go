package economy

import (
	"errors"
	"time"
)

// Currency names a balance column on the user row.
type Currency string

const (
	CurrencyPetals Currency = "petals"
	CurrencyRunes  Currency = "runes"
)

// EntryType is the direction of a ledger entry. Amounts are stored positive;
// the sign is implied by the type (earn adds, spend subtracts).
type EntryType string

const (
	EntryEarn  EntryType = "earn"
	EntrySpend EntryType = "spend"
)

// LedgerEntry is the immutable record of one balance mutation. Entries are
// append-only: they are written in the same transaction as the balance change
// and never updated or deleted, so the signed running sum for a user always
// equals that user's stored balance.
type LedgerEntry struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"userId"`
	Currency  Currency       `json:"currency"`
	Type      EntryType      `json:"type"`
	Amount    int64          `json:"amount"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Signed returns the entry amount with its type-implied sign.
func (e LedgerEntry) Signed() int64 {
	if e.Type == EntrySpend {
		return -e.Amount
	}
	return e.Amount
}

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownReason     = errors.New("unknown reason")
	ErrAmountExceedsCap  = errors.New("amount exceeds cap")
	ErrDailyCapExceeded  = errors.New("daily cap exceeded")
	ErrUserNotFound      = errors.New("user not found")
)
