package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionActivationsTotal,
		usageRecordedTotal,
	)
}

var (
	subscriptionActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_activations_total",
			Help: "Subscription activations by plan and result (applied/noop/error).",
		},
		[]string{"plan", "result"},
	)

	usageRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_recorded_total",
			Help: "Metered usage increments by feature and result (ok/limit).",
		},
		[]string{"feature", "result"},
	)
)

func IncActivation(plan, outcome string) {
	subscriptionActivationsTotal.WithLabelValues(norm(plan), norm(outcome)).Inc()
}

func IncUsage(feature, outcome string) {
	usageRecordedTotal.WithLabelValues(feature, norm(outcome)).Inc()
}
