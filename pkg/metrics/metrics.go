package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hanabira", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hanabira", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// LedgerTransactions counts completed and rejected balance mutations.
	// outcome: ok | insufficient_funds | cap_exceeded | daily_cap_exceeded | invalid | error
	LedgerTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hanabira", Name: "ledger_transactions_total", Help: "Number of ledger transactions by type, reason and outcome."},
		[]string{"type", "reason", "outcome"},
	)
	PetalsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hanabira", Name: "petals_granted_total", Help: "Total petals granted by earn source."},
		[]string{"reason"},
	)
	PetalsSpent = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hanabira", Name: "petals_spent_total", Help: "Total petals spent by reason."},
		[]string{"reason"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LedgerTransactions)
	reg.MustRegister(PetalsGranted)
	reg.MustRegister(PetalsSpent)
}
