// Package metrics owns the process-wide Prometheus registry. Feature packages
// register their own collectors against it through promauto.With.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a dedicated prometheus.Registry with the runtime collectors
// and a build info gauge already registered.
type Registry struct {
	*prometheus.Registry
	buildInfo *prometheus.GaugeVec
}

func New(version, environment string) *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	buildInfo := promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Name: "quorumcred_build_info",
		Help: "Build and environment of the running registry",
	}, []string{"version", "environment"})
	buildInfo.WithLabelValues(version, environment).Set(1)
	return &Registry{Registry: reg, buildInfo: buildInfo}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}
