package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

const namespace = "pharma"

// Prometheus records service metrics on its own registry.
type Prometheus struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	analytics   *prometheus.CounterVec
	swept       prometheus.Counter
	sweeps      prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	p := &Prometheus{
		registry: registry,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transition attempts by edge and outcome.",
		}, []string{"from", "to", "outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Alerts stored, by type.",
		}, []string{"type"}),
		analytics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_calls_total",
			Help:      "Analytics gateway calls by operation and result status.",
		}, []string{"operation", "status"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_swept_total",
			Help:      "Batches re-evaluated by the background sweeper.",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Completed sweeper passes.",
		}),
	}

	registry.MustRegister(
		p.transitions, p.alerts, p.analytics, p.swept, p.sweeps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) OrderTransition(from, to domain.OrderStatus, outcome string) {
	p.transitions.WithLabelValues(string(from), string(to), outcome).Inc()
}

func (p *Prometheus) AlertRaised(alertType domain.AlertType) {
	p.alerts.WithLabelValues(string(alertType)).Inc()
}

func (p *Prometheus) AnalyticsCall(operation string, status domain.AnalyticsStatus) {
	p.analytics.WithLabelValues(operation, string(status)).Inc()
}

func (p *Prometheus) BatchesSwept(count int) {
	p.sweeps.Inc()
	p.swept.Add(float64(count))
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
