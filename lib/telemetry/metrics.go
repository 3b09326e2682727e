package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the composition metrics. A nil *Metrics records nothing.
type Metrics struct {
	resolves        *prometheus.CounterVec
	resolveLatency  *prometheus.HistogramVec
	factoryRuns     *prometheus.CounterVec
	factoryErrors   *prometheus.CounterVec
	factoryLatency  *prometheus.HistogramVec
	renderErrors    *prometheus.CounterVec
	depthExceeded   prometheus.Counter
	childSubstitute *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "resolves_total",
			Help:      "Component resolutions by component and outcome",
		}, []string{"component", "outcome"}),
		resolveLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blueprint",
			Name:      "resolve_duration_seconds",
			Help:      "Component resolution latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component"}),
		factoryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "factory_runs_total",
			Help:      "Factory executions by component and scope",
		}, []string{"component", "scope"}),
		factoryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "factory_errors_total",
			Help:      "Absorbed factory failures by component and scope",
		}, []string{"component", "scope"}),
		factoryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blueprint",
			Name:      "factory_duration_seconds",
			Help:      "Factory execution latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		renderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "render_errors_total",
			Help:      "Absorbed renderer failures by renderer kind",
		}, []string{"kind"}),
		depthExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "depth_exceeded_total",
			Help:      "Branches cut off by the nesting limit",
		}),
		childSubstitute: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "child_error_fragments_total",
			Help:      "Child resolutions replaced by an inline error fragment",
		}, []string{"component"}),
	}

	for _, c := range []prometheus.Collector{
		m.resolves, m.resolveLatency, m.factoryRuns, m.factoryErrors,
		m.factoryLatency, m.renderErrors, m.depthExceeded, m.childSubstitute,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveResolve records one resolution.
func (m *Metrics) ObserveResolve(component string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.resolves.WithLabelValues(component, outcome).Inc()
	m.resolveLatency.WithLabelValues(component).Observe(d.Seconds())
}

// ObserveFactory records one factory execution.
func (m *Metrics) ObserveFactory(component, scope string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.factoryRuns.WithLabelValues(component, scope).Inc()
	m.factoryLatency.WithLabelValues(scope).Observe(d.Seconds())
	if err != nil {
		m.factoryErrors.WithLabelValues(component, scope).Inc()
	}
}

// RenderError records an absorbed renderer failure.
func (m *Metrics) RenderError(kind string) {
	if m == nil {
		return
	}
	m.renderErrors.WithLabelValues(kind).Inc()
}

// DepthExceeded records a branch cut off by the nesting limit.
func (m *Metrics) DepthExceeded() {
	if m == nil {
		return
	}
	m.depthExceeded.Inc()
}

// ChildErrorFragment records a child replaced by an error fragment.
func (m *Metrics) ChildErrorFragment(component string) {
	if m == nil {
		return
	}
	m.childSubstitute.WithLabelValues(component).Inc()
}
