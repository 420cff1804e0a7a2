package metrics

import (
	"github.com/phrazzld/taskmanager-api/internal/platform/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterCacheStats exposes the outcome counters of a task cache.
func (m *Metrics) RegisterCacheStats(stats func() cache.Stats) error {
	results := map[string]func(cache.Stats) uint64{
		"hit":   func(s cache.Stats) uint64 { return s.Hits },
		"miss":  func(s cache.Stats) uint64 { return s.Misses },
		"error": func(s cache.Stats) uint64 { return s.Errors },
	}

	for result, read := range results {
		read := read
		counter := prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   Namespace,
				Name:        NameCacheRequests,
				Help:        "Task cache lookups and failures by result",
				ConstLabels: prometheus.Labels{LabelResult: result},
			},
			func() float64 { return float64(read(stats())) },
		)
		if err := m.registry.Register(counter); err != nil {
			return err
		}
	}
	return nil
}
