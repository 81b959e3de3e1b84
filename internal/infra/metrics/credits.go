package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		creditsSpentTotal,
		creditsRefundedTotal,
		creditDenialsTotal,
		gateDecisionsTotal,
		walletRenewalsTotal,
	)
}

var (
	creditsSpentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_spent_total",
			Help: "Credits deducted from premium wallets, by ledger source.",
		},
		[]string{"source"},
	)

	creditsRefundedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_refunded_total",
			Help: "Credits returned by compensating refunds.",
		},
	)

	creditDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_denials_total",
			Help: "Deductions refused for insufficient balance, by source.",
		},
		[]string{"source"},
	)

	gateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Entitlement gate outcomes per feature and reason.",
		},
		[]string{"feature", "reason"}, // reason 'allowed' when admitted
	)

	walletRenewalsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_renewals_total",
			Help: "Monthly grants issued by the renewal worker.",
		},
	)
)

func AddCreditsSpent(source string, n int) {
	creditsSpentTotal.WithLabelValues(norm(source)).Add(float64(n))
}

func AddCreditsRefunded(n int) { creditsRefundedTotal.Add(float64(n)) }

func IncCreditDenied(source string) { creditDenialsTotal.WithLabelValues(norm(source)).Inc() }

func IncGateDecision(feature, reason string) {
	if reason == "" {
		reason = "allowed"
	}
	gateDecisionsTotal.WithLabelValues(norm(feature), norm(reason)).Inc()
}

func IncWalletRenewals(count int) { walletRenewalsTotal.Add(float64(count)) }
