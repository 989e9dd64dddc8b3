package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/brazilnut/internal/metrics"
	"github.com/san-kum/brazilnut/internal/sim"
)

type Registry struct {
	metrics map[string]func() sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() sim.Metric),
	}

	r.metrics["kick_count"] = func() sim.Metric { return metrics.NewKickCount() }
	r.metrics["floor_travel"] = func() sim.Metric { return metrics.NewFloorTravel() }
	r.metrics["floor_excursion"] = func() sim.Metric { return metrics.NewFloorExcursion() }
	r.metrics["mean_floor_speed"] = func() sim.Metric { return metrics.NewMeanFloorSpeed() }
	r.metrics["inserted_particles"] = func() sim.Metric { return metrics.NewInsertedParticles() }
	r.metrics["shutoff_time"] = func() sim.Metric { return metrics.NewShutoffTime() }
	r.metrics["kick_frequency"] = func() sim.Metric { return metrics.NewKickFrequency() }

	return r
}

func (r *Registry) GetMetric(name string) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns a fresh instance of every registered metric.
func (r *Registry) DefaultMetrics() []sim.Metric {
	out := make([]sim.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}
