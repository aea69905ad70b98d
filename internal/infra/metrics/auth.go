package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(authEventsTotal) }

var authEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Account operations by event and result.",
	},
	[]string{"event", "result"}, // event: register|login|refresh|verify
)

func IncAuth(event string, ok bool) {
	authEventsTotal.WithLabelValues(norm(event), result(ok)).Inc()
}
