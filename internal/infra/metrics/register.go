package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	once    sync.Once
	pending []prometheus.Collector

	// Registry holds the service collectors plus the Go runtime and process collectors.
	Registry = prometheus.NewRegistry()
)

// register queues collectors from each file's init.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs the queued collectors once; later calls are no-ops.
func MustRegister() {
	once.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		Registry.MustRegister(pending...)
	})
}
