package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"busticket/pkg/metrics"
)

// NewMetrics creates a dedicated registry carrying the Go runtime and process
// collectors plus the service collectors.
func NewMetrics(namespace string) (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewMetrics(namespace, reg), reg
}
