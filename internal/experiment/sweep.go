package experiment

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/sim"
)

// Sweep runs several configurations concurrently, at most Parallelism at a
// time. Each run gets its own scene, controller and metric instances;
// nothing is shared between them.
type Sweep struct {
	configs     []*config.Config
	registry    *Registry
	parallelism int
}

func NewSweep(registry *Registry, configs ...*config.Config) *Sweep {
	return &Sweep{configs: configs, registry: registry, parallelism: runtime.NumCPU()}
}

// SetParallelism bounds the number of concurrent runs. n <= 0 means no bound.
func (s *Sweep) SetParallelism(n int) {
	s.parallelism = n
}

// Run returns results in config order. The first failing run cancels the
// others.
func (s *Sweep) Run(ctx context.Context) ([]*sim.Result, error) {
	exps := make([]*Experiment, len(s.configs))
	for i, cfg := range s.configs {
		exp, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("sweep config %d: %w", i, err)
		}
		exp.Setup(s.registry.DefaultMetrics())
		exps[i] = exp
	}

	results := make([]*sim.Result, len(exps))

	g, ctx := errgroup.WithContext(ctx)
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for i := range exps {
		i := i
		g.Go(func() error {
			res, err := exps[i].Run(ctx)
			if err != nil {
				return fmt.Errorf("sweep run %s: %w", s.configs[i].Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Vary returns one copy of base per value with the named parameter set.
func Vary(base *config.Config, param string, values []float64) ([]*config.Config, error) {
	if _, ok := sweepParams[param]; !ok {
		return nil, fmt.Errorf("unknown sweep parameter: %s", param)
	}

	out := make([]*config.Config, len(values))
	for i, v := range values {
		cfg := base.Clone()
		_ = Apply(cfg, param, v)
		cfg.Name = fmt.Sprintf("%s_%s=%g", base.Name, param, v)
		out[i] = cfg
	}
	return out, nil
}

// Apply sets a single named parameter on cfg.
func Apply(cfg *config.Config, param string, v float64) error {
	set, ok := sweepParams[param]
	if !ok {
		return fmt.Errorf("unknown sweep parameter: %s", param)
	}
	set(cfg, v)
	return nil
}

var sweepParams = map[string]func(c *config.Config, v float64){
	"amplitude":      func(c *config.Config, v float64) { c.Schedule.Amplitude = v },
	"pulse_interval": func(c *config.Config, v float64) { c.Schedule.PulseInterval = v },
	"stop_flow":      func(c *config.Config, v float64) { c.Schedule.StopFlow = v },
	"kick_start":     func(c *config.Config, v float64) { c.Schedule.KickStart = v },
	"stop_kick":      func(c *config.Config, v float64) { c.Schedule.StopKick = v },
	"flow_rate":      func(c *config.Config, v float64) { c.Insertion.FlowRate = v },
}

// Param reads a single named parameter from cfg.
func Param(cfg *config.Config, param string) (float64, error) {
	switch param {
	case "amplitude":
		return cfg.Schedule.Amplitude, nil
	case "pulse_interval":
		return cfg.Schedule.PulseInterval, nil
	case "stop_flow":
		return cfg.Schedule.StopFlow, nil
	case "kick_start":
		return cfg.Schedule.KickStart, nil
	case "stop_kick":
		return cfg.Schedule.StopKick, nil
	case "flow_rate":
		return cfg.Insertion.FlowRate, nil
	}
	return 0, fmt.Errorf("unknown sweep parameter: %s", param)
}

// SweepParams lists the parameters Vary understands.
func SweepParams() []string {
	return []string{"amplitude", "pulse_interval", "stop_flow", "kick_start", "stop_kick", "flow_rate"}
}
