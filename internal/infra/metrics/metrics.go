// File: internal/infra/metrics/metrics.go
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves Registry. Call MustRegister before serving.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
