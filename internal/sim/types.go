package sim

import "github.com/san-kum/brazilnut/internal/control"

// StepClock is a fixed-step clock. Time accumulates by repeated addition of
// dt, matching how the engine advances it.
type StepClock struct {
	t    float64
	dt   float64
	step int
}

func NewStepClock(dt float64) *StepClock {
	return &StepClock{dt: dt}
}

func (c *StepClock) Time() float64     { return c.t }
func (c *StepClock) TimeStep() float64 { return c.dt }
func (c *StepClock) Step() int         { return c.step }

func (c *StepClock) Advance() {
	c.t += c.dt
	c.step++
}

// Sample is the observable state after one step.
type Sample struct {
	Step          int
	Time          float64
	Phase         control.Phase
	FlowRate      float64
	FloorVelocity float64
	FloorPosition float64
	Inserted      int
	Kicks         int
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Config struct {
	Dt        float64
	Duration  float64
	SaveCount int
}

type Result struct {
	Samples    []Sample
	Events     []control.Event
	Metrics    map[string]float64
	StepsTaken int
}
