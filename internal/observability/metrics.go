package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/sim"
)

// Collector mirrors controller transitions and substrate samples into
// Prometheus metrics. It is both a control.Observer and a sim.Observer.
type Collector struct {
	gatherer prometheus.Gatherer

	Kicks         *prometheus.CounterVec
	FlowShutoffs  prometheus.Counter
	Phase         prometheus.Gauge
	FloorVelocity prometheus.Gauge
	FloorPosition prometheus.Gauge
	SimTime       prometheus.Gauge
	Inserted      prometheus.Gauge
}

// NewCollector registers the experiment metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	kicks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "brazilnut_kicks_total",
		Help: "Floor kicks applied, labeled by direction.",
	}, []string{"direction"}), "brazilnut_kicks_total")
	if err != nil {
		return nil, err
	}
	shutoffs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brazilnut_flow_shutoffs_total",
		Help: "Insertion flow shutoffs observed.",
	}), "brazilnut_flow_shutoffs_total")
	if err != nil {
		return nil, err
	}

	gauges := make(map[string]prometheus.Gauge)
	for _, g := range []struct{ name, help string }{
		{"brazilnut_phase", "Current experiment phase (0 filling, 1 waiting, 2 kicking, 3 resting)."},
		{"brazilnut_floor_velocity", "Vertical velocity of the driven floor."},
		{"brazilnut_floor_position", "Vertical position of the driven floor."},
		{"brazilnut_sim_time_seconds", "Simulated time of the last step."},
		{"brazilnut_inserted_particles", "Filler particles inserted so far."},
	} {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}), g.name)
		if err != nil {
			return nil, err
		}
		gauges[g.name] = gauge
	}

	return &Collector{
		gatherer:      gatherer,
		Kicks:         kicks,
		FlowShutoffs:  shutoffs,
		Phase:         gauges["brazilnut_phase"],
		FloorVelocity: gauges["brazilnut_floor_velocity"],
		FloorPosition: gauges["brazilnut_floor_position"],
		SimTime:       gauges["brazilnut_sim_time_seconds"],
		Inserted:      gauges["brazilnut_inserted_particles"],
	}, nil
}

// OnTransition counts kicks and shutoffs.
func (c *Collector) OnTransition(e control.Event) {
	if c == nil {
		return
	}
	switch e.Kind {
	case control.FlowShutoff:
		c.FlowShutoffs.Inc()
	case control.Kick:
		c.Kicks.WithLabelValues(Direction(e.Velocity)).Inc()
	}
}

// OnStep updates the state gauges from a sample.
func (c *Collector) OnStep(s sim.Sample) {
	if c == nil {
		return
	}
	c.Phase.Set(float64(s.Phase))
	c.FloorVelocity.Set(s.FloorVelocity)
	c.FloorPosition.Set(s.FloorPosition)
	c.SimTime.Set(s.Time)
	c.Inserted.Set(float64(s.Inserted))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Direction labels a kick velocity.
func Direction(v float64) string {
	if v < 0 {
		return "down"
	}
	return "up"
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
