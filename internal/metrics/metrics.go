package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recharge"

type Metrics struct {
	Transitions        *prometheus.CounterVec
	CreditedAmount     prometheus.Counter
	SideEffectFailures *prometheus.CounterVec
	AutoMatchOutcomes  *prometheus.CounterVec
	SweepTimedOut      prometheus.Counter
	DailyResetWallets  prometheus.Counter
	OutboxDelivery     *prometheus.CounterVec
}

// New 注册到 reg；测试传入独立的 prometheus.NewRegistry() 避免重复注册
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transaction",
				Name:      "transitions_total",
				Help:      "Recharge status transitions partitioned by target status.",
			},
			[]string{"status"},
		),
		CreditedAmount: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "credited_amount_total",
				Help:      "Total amount credited to wallets by approvals.",
			},
		),
		SideEffectFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "side_effect_failures_total",
				Help:      "Post-commit side effects that failed, partitioned by effect.",
			},
			[]string{"effect"},
		),
		AutoMatchOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "automatch",
				Name:      "outcomes_total",
				Help:      "Bank notification match outcomes.",
			},
			[]string{"outcome"},
		),
		SweepTimedOut: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "timed_out_total",
				Help:      "Transactions moved to TIMEOUT by the sweep.",
			},
		),
		DailyResetWallets: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "daily_reset_wallets_total",
				Help:      "Wallets whose daily charge counter was reset.",
			},
		),
		OutboxDelivery: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbox",
				Name:      "delivery_total",
				Help:      "Outbox delivery attempts partitioned by result.",
			},
			[]string{"result"},
		),
	}
}
