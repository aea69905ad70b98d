package metrics

import (
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(ledgerPoolConns, ledgerPoolAcquires) }

var (
	ledgerPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledger_pool_connections",
			Help: "Ledger database pool connections by state.",
		},
		[]string{"state"}, // total, idle, in_use, max
	)
	ledgerPoolAcquires = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_pool_acquire_total",
		Help: "Cumulative successful connection acquisitions from the ledger pool.",
	})
)

// ObserveLedgerPool snapshots pool statistics.
func ObserveLedgerPool(st *pgxpool.Stat) {
	if st == nil {
		return
	}
	ledgerPoolConns.WithLabelValues("total").Set(float64(st.TotalConns()))
	ledgerPoolConns.WithLabelValues("idle").Set(float64(st.IdleConns()))
	ledgerPoolConns.WithLabelValues("in_use").Set(float64(st.AcquiredConns()))
	ledgerPoolConns.WithLabelValues("max").Set(float64(st.MaxConns()))
	ledgerPoolAcquires.Set(float64(st.AcquireCount()))
}
