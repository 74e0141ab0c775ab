package observability

import (
	"time"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/synchronizer"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the synchronizer collectors.
type Metrics struct {
	ViewSwitches      *prometheus.CounterVec
	ParseFailures     prometheus.Counter
	CoercionFailures  prometheus.Counter
	Propagations      *prometheus.CounterVec
	DroppedPropagates prometheus.Counter
	SerializeDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ViewSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyyaml_view_switches_total",
				Help: "View switch attempts by target view and result",
			},
			[]string{"to", "result"},
		),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "easyyaml_parse_failures_total",
			Help: "Switches to the tree view rejected because the text did not parse",
		}),
		CoercionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "easyyaml_coercion_failures_total",
			Help: "Scalar edits rejected because the text did not fit the node type",
		}),
		Propagations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easyyaml_propagations_total",
				Help: "Propagation steps run between views, by source view",
			},
			[]string{"source"},
		),
		DroppedPropagates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "easyyaml_dropped_propagations_total",
			Help: "Nested propagations refused by the reentrancy guard",
		}),
		SerializeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "easyyaml_serialize_duration_seconds",
			Help:    "Time spent rendering trees as YAML text",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.ViewSwitches, m.ParseFailures, m.CoercionFailures,
		m.Propagations, m.DroppedPropagates, m.SerializeDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns synchronizer hooks that update the collectors.
func (m *Metrics) Hooks() domain.SyncHooks {
	return domain.SyncHooks{
		OnSwitch: func(from, to domain.View, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.ViewSwitches.WithLabelValues(to.String(), result).Inc()
		},
		OnPropagate: func(source domain.View) {
			m.Propagations.WithLabelValues(source.String()).Inc()
		},
		OnDropped: func(domain.View) {
			m.DroppedPropagates.Inc()
		},
		OnSerialize: func(elapsed time.Duration, err error) {
			m.SerializeDuration.Observe(elapsed.Seconds())
		},
	}
}

// Listener counts failure events.
func (m *Metrics) Listener() domain.Listener {
	return func(e domain.Event) {
		switch e.Type {
		case domain.EventParseFailed:
			m.ParseFailures.Inc()
		case domain.EventValueCoercionFailed:
			m.CoercionFailures.Inc()
		}
	}
}

// SyncOptions wires the collectors into a synchronizer. Extra hooks run
// after the metric hooks.
func (m *Metrics) SyncOptions(extra ...domain.SyncHooks) []synchronizer.Option {
	hooks := m.Hooks()
	if len(extra) > 0 {
		hooks = domain.MergeHooks(append([]domain.SyncHooks{hooks}, extra...)...)
	}
	return []synchronizer.Option{
		synchronizer.WithHooks(hooks),
		synchronizer.WithListener(m.Listener()),
	}
}
