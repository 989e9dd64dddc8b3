package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/dynamo"
	"github.com/san-kum/brazilnut/internal/scene"
)

// maxSteps caps Duration/Dt so the sample buffer size cannot overflow.
const maxSteps = 1e9

// Simulator is a kinematic stand-in for the particle engine. It moves the
// floor with its velocity and counts particles stamped by the insertion
// region; contacts and particle motion are not modelled.
type Simulator struct {
	scene      *scene.Scene
	controller *control.PhaseController
	metrics    []Metric
	observers  []Observer

	clock          *StepClock
	cfg            Config
	insertedVolume float64
	inserted       int
	events         []control.Event
	transitioned   bool

	floorStart dynamo.Vec3
	flowStart  float64
}

func New(sc *scene.Scene, ctrl *control.PhaseController) *Simulator {
	s := &Simulator{
		scene:      sc,
		controller: ctrl,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		floorStart: sc.Floor.Position(),
		flowStart:  sc.Insertion.VolumeFlowRate(),
	}
	ctrl.AddObserver(control.ObserverFunc(s.onTransition))
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Scene() *scene.Scene                  { return s.scene }
func (s *Simulator) Controller() *control.PhaseController { return s.controller }
func (s *Simulator) Clock() *StepClock                    { return s.clock }

func (s *Simulator) onTransition(e control.Event) {
	s.events = append(s.events, e)
	s.transitioned = true
}

// Init validates cfg and restores the scene, controller and metrics to their
// state before the first step.
func (s *Simulator) Init(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	s.cfg = cfg
	s.clock = NewStepClock(cfg.Dt)
	s.insertedVolume = 0
	s.inserted = 0
	s.events = nil
	s.transitioned = false

	s.scene.Floor.SetPosition(s.floorStart)
	s.scene.Floor.SetVelocity(dynamo.Vec3{})
	s.scene.Insertion.SetVolumeFlowRate(s.flowStart)
	s.controller.Reset()

	for _, m := range s.metrics {
		m.Reset()
	}
	return nil
}

// StepOnce advances the substrate by one step, then time, then runs the
// controller. It returns the resulting sample.
func (s *Simulator) StepOnce() Sample {
	dt := s.clock.TimeStep()

	s.scene.Floor.Advance(dt)
	s.insert(dt)

	s.clock.Advance()
	s.controller.Step(s.clock)

	sample := s.sample()
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, o := range s.observers {
		o.OnStep(sample)
	}
	return sample
}

func (s *Simulator) insert(dt float64) {
	s.insertedVolume += s.scene.Insertion.VolumeFlowRate() * dt
	v := s.scene.Insertion.Template.Volume()
	for s.insertedVolume >= v {
		s.insertedVolume -= v
		s.inserted++
	}
}

func (s *Simulator) sample() Sample {
	return Sample{
		Step:          s.clock.Step(),
		Time:          s.clock.Time(),
		Phase:         s.controller.Phase(),
		FlowRate:      s.scene.Insertion.VolumeFlowRate(),
		FloorVelocity: s.scene.Floor.Velocity().Z,
		FloorPosition: s.scene.Floor.Position().Z,
		Inserted:      s.inserted,
		Kicks:         s.controller.KickCount(),
	}
}

// Run executes int(Duration/Dt) steps. Samples are kept every SaveCount
// steps and on every step with a transition.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.Init(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Samples: make([]Sample, 0, steps/cfg.SaveCount+2),
		Metrics: make(map[string]float64),
	}
	result.Samples = append(result.Samples, s.sample())

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.Events = s.events
			return result, ctx.Err()
		default:
		}

		s.transitioned = false
		sample := s.StepOnce()
		result.StepsTaken++

		if !s.scene.Floor.Position().IsValid() {
			return result, dynamo.SimError{Time: sample.Time, Step: sample.Step, Message: "invalid floor position (NaN/Inf)"}
		}
		if sample.Step%cfg.SaveCount == 0 || s.transitioned {
			result.Samples = append(result.Samples, sample)
		}
	}

	result.Events = s.events
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// RunWithCallback steps until Duration is covered or callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Sample) bool) error {
	if err := s.Init(cfg); err != nil {
		return err
	}

	steps := int(cfg.Duration / cfg.Dt)
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(s.StepOnce()) {
			return nil
		}
	}
	return nil
}

// Events returns the transitions seen since the last Init.
func (s *Simulator) Events() []control.Event { return s.events }

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 1) {
		return fmt.Errorf("dt must be positive and finite, got %f: %w", cfg.Dt, dynamo.ErrInvalidConfig)
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 1) {
		return fmt.Errorf("duration must be positive and finite, got %f: %w", cfg.Duration, dynamo.ErrInvalidConfig)
	}
	if steps := cfg.Duration / cfg.Dt; steps > maxSteps {
		return fmt.Errorf("duration %f at dt %f needs %.0f steps: %w", cfg.Duration, cfg.Dt, steps, dynamo.ErrInvalidConfig)
	}
	if cfg.SaveCount <= 0 {
		return fmt.Errorf("save count must be positive, got %d: %w", cfg.SaveCount, dynamo.ErrInvalidConfig)
	}
	return nil
}
