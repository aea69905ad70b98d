package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentSessionsTotal,
		paymentWebhooksTotal,
		paymentsRevenueTotal,
		providerCallDuration,
	)
}

var (
	paymentSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_sessions_total",
			Help: "Payment sessions by method and status (pending/completed/failed).",
		},
		[]string{"method", "status"},
	)

	// result: ok|invalid_signature|not_found|rejected|error
	paymentWebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_total",
			Help: "Provider webhook deliveries by provider and outcome.",
		},
		[]string{"provider", "result"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of completed payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_provider_call_duration_seconds",
			Help:    "Latency of outbound checkout calls by method and result.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "result"},
	)
)

func IncPaymentSession(method, status string) {
	paymentSessionsTotal.WithLabelValues(norm(method), norm(status)).Inc()
}

func IncWebhook(provider, outcome string) {
	paymentWebhooksTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(f)
}

func ObserveProviderCall(method string, ok bool, seconds float64) {
	providerCallDuration.WithLabelValues(norm(method), result(ok)).Observe(seconds)
}
