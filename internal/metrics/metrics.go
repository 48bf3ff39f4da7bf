// Package metrics содержит prometheus метрики сервиса. Метрики регистрируются в реестре по умолчанию
// и отдаются через promhttp на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы обработки вебхука.
const (
	OutcomeApplied          = "applied"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnored          = "ignored"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMalformed        = "malformed"
	OutcomeError            = "error"
)

var (
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_webhook_events_total",
			Help: "Webhook deliveries by processor and outcome",
		},
		[]string{"processor", "outcome"},
	)
	SettleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_settle_duration_seconds",
			Help:    "Duration of the atomic settlement write",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"payment_type"},
	)
	ReconcileReview = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reconcile_review_total",
			Help: "Settlements applied outside the pending -> confirmed trail",
		},
		[]string{"payment_type", "reason"},
	)
	ReferralRewards = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_referral_rewards_total",
			Help: "Referral rewards granted at signup",
		},
	)
	Checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_checkouts_total",
			Help: "Checkout initiations by payment type and outcome",
		},
		[]string{"payment_type", "outcome"},
	)
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
)
