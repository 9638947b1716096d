package persist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts persistence outcomes.
type Metrics struct {
	saves     *prometheus.CounterVec
	loads     *prometheus.CounterVec
	cancelled prometheus.Counter
}

// NewMetrics registers persistence collectors. A nil registerer yields nil
// metrics, which every method tolerates.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cargo_state_saves_total",
			Help: "Ledger saves by resulting sync status.",
		}, []string{"status"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cargo_state_loads_total",
			Help: "Ledger loads by resulting sync status.",
		}, []string{"status"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cargo_state_saves_superseded_total",
			Help: "Pending or in-flight saves replaced by a newer mutation.",
		}),
	}
	registerer.MustRegister(m.saves, m.loads, m.cancelled)
	return m
}

func (m *Metrics) observeSave(status Status) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) observeLoad(status Status) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) superseded() {
	if m == nil {
		return
	}
	m.cancelled.Inc()
}
