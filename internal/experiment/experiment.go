package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/scene"
	"github.com/san-kum/brazilnut/internal/sim"
)

// Experiment wires one configuration into a scene, a phase controller and
// the simulator that drives them.
type Experiment struct {
	cfg        *config.Config
	scene      *scene.Scene
	controller *control.PhaseController
	simulator  *sim.Simulator
}

// New validates cfg and builds the scene before anything is stepped.
func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sc := scene.NewBuilder(cfg).Build()
	ctrl, err := control.New(cfg.Schedule, sc.Insertion, sc.Floor)
	if err != nil {
		return nil, fmt.Errorf("experiment setup failed: %w", err)
	}

	return &Experiment{
		cfg:        cfg,
		scene:      sc,
		controller: ctrl,
		simulator:  sim.New(sc, ctrl),
	}, nil
}

func (e *Experiment) Setup(metrics []sim.Metric) {
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
}

func (e *Experiment) AddObserver(o sim.Observer) { e.simulator.AddObserver(o) }

func (e *Experiment) AddTransitionObserver(o control.Observer) { e.controller.AddObserver(o) }

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.SimConfig())
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:        e.cfg.Dt,
		Duration:  e.cfg.Duration,
		SaveCount: e.cfg.SaveCount,
	}
}

func (e *Experiment) Config() *config.Config               { return e.cfg }
func (e *Experiment) Scene() *scene.Scene                  { return e.scene }
func (e *Experiment) Controller() *control.PhaseController { return e.controller }

// GetSimulator returns the underlying simulator for step-by-step driving.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
