package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup captures rate lookup outcomes and latency.
// It satisfies rating.LookupObserver.
type Lookup struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewLookup creates the lookup collectors and registers them on reg.
func NewLookup(reg prometheus.Registerer) (*Lookup, error) {
	m := &Lookup{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rating_lookups_total",
			Help: "Rate lookups by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rating_lookup_duration_seconds",
			Help:    "Rate lookup latency by outcome.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.total, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Lookup) ObserveLookup(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
