package economy

import (
	"context"

	"github.com/hanabira/hanabira/backend/go-services/internal/config"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
	"github.com/hanabira/hanabira/backend/go-services/pkg/metrics"
)

// Spend reasons the service recognizes. Enforced only when the strict flag is
// set; earn sources are always strict because caps require a recognized source.
var knownSpendReasons = map[string]bool{
	"SHOP_PURCHASE": true,
	"GACHA_PULL":    true,
	"PROFILE_FLAIR": true,
}

// Service is the economy core: it validates earn requests against per-source
// caps, authorizes spends, and drives all balance mutations through the store.
type Service struct {
	store       Store
	caps        map[string]config.SourceCap
	strictSpend bool
	daily       DailyCounter // optional; nil disables the fast path
}

// NewService builds the economy service. daily may be nil.
func NewService(store Store, cfg config.EconomyConfig, daily DailyCounter) *Service {
	return &Service{
		store:       store,
		caps:        cfg.SourceCaps,
		strictSpend: cfg.StrictSpendReasons,
		daily:       daily,
	}
}

// Balance returns the user's current balance; 0 for users with no activity yet.
func (s *Service) Balance(ctx context.Context, userID int64, cur Currency) (int64, error) {
	return s.store.Balance(ctx, userID, cur)
}

// ValidateEarnRequest applies the per-source business rules without mutating
// anything: unknown sources, over-cap single awards, and exhausted daily caps
// are rejected here before a transaction is attempted.
func (s *Service) ValidateEarnRequest(ctx context.Context, userID int64, cur Currency, reason string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	policy, ok := s.caps[reason]
	if !ok {
		return ErrUnknownReason
	}
	if amount > policy.MaxPerAward {
		return ErrAmountExceedsCap
	}
	if policy.DailyCap > 0 && s.daily != nil {
		used, err := s.daily.Used(ctx, userID, cur, reason)
		if err != nil {
			// fast path only; the transactional sum still guards
			logger.Warnf("daily counter read failed (user=%d reason=%s): %v", userID, reason, err)
		} else if used+amount > policy.DailyCap {
			return ErrDailyCapExceeded
		}
	}
	return nil
}

// Earn validates the request and writes an earn transaction. The daily cap is
// re-checked inside the store transaction, so a stale fast-path counter can
// never over-grant.
func (s *Service) Earn(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any) (int64, error) {
	if err := s.ValidateEarnRequest(ctx, userID, cur, reason, amount); err != nil {
		metrics.LedgerTransactions.WithLabelValues(string(EntryEarn), reason, outcomeLabel(err)).Inc()
		return 0, err
	}

	dailyCap := s.caps[reason].DailyCap
	balance, err := s.store.Earn(ctx, userID, cur, amount, reason, metadata, dailyCap)
	if err != nil {
		metrics.LedgerTransactions.WithLabelValues(string(EntryEarn), reason, outcomeLabel(err)).Inc()
		return 0, err
	}

	if s.daily != nil && dailyCap > 0 {
		if derr := s.daily.Add(ctx, userID, cur, reason, amount); derr != nil {
			logger.Warnf("daily counter update failed (user=%d reason=%s): %v", userID, reason, derr)
		}
	}
	metrics.LedgerTransactions.WithLabelValues(string(EntryEarn), reason, "ok").Inc()
	if cur == CurrencyPetals {
		metrics.PetalsGranted.WithLabelValues(reason).Add(float64(amount))
	}
	return balance, nil
}

// AuthorizeSpend is the early-rejection check: it reads the balance and
// refuses requests that obviously cannot succeed. The conditional update in
// the store remains the authoritative guard under concurrency.
func (s *Service) AuthorizeSpend(ctx context.Context, userID int64, cur Currency, amount int64) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	balance, err := s.store.Balance(ctx, userID, cur)
	if err != nil {
		return false, err
	}
	if balance < amount {
		return false, ErrInsufficientFunds
	}
	return true, nil
}

// Spend authorizes and executes a debit with its ledger entry.
func (s *Service) Spend(ctx context.Context, userID int64, cur Currency, amount int64, reason string, metadata map[string]any) (int64, error) {
	if amount <= 0 {
		metrics.LedgerTransactions.WithLabelValues(string(EntrySpend), reason, "invalid").Inc()
		return 0, ErrInvalidAmount
	}
	if s.strictSpend && !knownSpendReasons[reason] {
		metrics.LedgerTransactions.WithLabelValues(string(EntrySpend), reason, "invalid").Inc()
		return 0, ErrUnknownReason
	}
	if ok, err := s.AuthorizeSpend(ctx, userID, cur, amount); !ok {
		metrics.LedgerTransactions.WithLabelValues(string(EntrySpend), reason, outcomeLabel(err)).Inc()
		return 0, err
	}

	balance, err := s.store.Spend(ctx, userID, cur, amount, reason, metadata)
	if err != nil {
		metrics.LedgerTransactions.WithLabelValues(string(EntrySpend), reason, outcomeLabel(err)).Inc()
		return 0, err
	}
	metrics.LedgerTransactions.WithLabelValues(string(EntrySpend), reason, "ok").Inc()
	if cur == CurrencyPetals {
		metrics.PetalsSpent.WithLabelValues(reason).Add(float64(amount))
	}
	return balance, nil
}

// History lists the caller's ledger entries, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]LedgerEntry, error) {
	return s.store.Entries(ctx, userID, limit, offset)
}

func outcomeLabel(err error) string {
	switch err {
	case nil:
		return "ok"
	case ErrInsufficientFunds:
		return "insufficient_funds"
	case ErrAmountExceedsCap:
		return "cap_exceeded"
	case ErrDailyCapExceeded:
		return "daily_cap_exceeded"
	case ErrInvalidAmount, ErrUnknownReason:
		return "invalid"
	default:
		return "error"
	}
}
