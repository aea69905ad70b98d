package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		analyticsEventsTotal,
		ledgerWritesTotal,
		sessionsAbandonedTotal,
		workerTasksTotal,
		workerQueueDepth,
	)
}

var (
	// result: ok|dropped|error
	analyticsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_total",
			Help: "Analytics events by outcome.",
		},
		[]string{"result"},
	)

	ledgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_writes_total",
			Help: "Payment ledger writes by operation and result.",
		},
		[]string{"op", "result"},
	)

	sessionsAbandonedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_sessions_abandoned_total",
			Help: "Pending sessions marked abandoned in the ledger by the sweeper.",
		},
	)

	// result: ok|error|panic|rejected
	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Background tasks by pool and result.",
		},
		[]string{"pool", "result"},
	)

	workerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Tasks waiting in a worker pool queue.",
		},
		[]string{"pool"},
	)
)

func IncAnalyticsEvent(outcome string) {
	analyticsEventsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncLedgerWrite(op string, ok bool) {
	ledgerWritesTotal.WithLabelValues(norm(op), result(ok)).Inc()
}

func AddSessionsAbandoned(n int64) {
	sessionsAbandonedTotal.Add(float64(n))
}

func IncWorkerTask(pool, result string) {
	workerTasksTotal.WithLabelValues(norm(pool), norm(result)).Inc()
}

func SetWorkerQueueDepth(pool string, n int) {
	workerQueueDepth.WithLabelValues(norm(pool)).Set(float64(n))
}
