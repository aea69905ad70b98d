package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(kvReadsTotal) }

var kvReadsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kv_reads_total",
		Help: "Key-value store reads by record kind and result.",
	},
	[]string{"kind", "result"}, // e.g., kind="payment_session", result="hit"
)

func IncKVRead(kind string, hit bool) {
	r := "miss"
	if hit {
		r = "hit"
	}
	kvReadsTotal.WithLabelValues(norm(kind), r).Inc()
}
