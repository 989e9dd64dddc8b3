package control

import (
	"fmt"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/dynamo"
)

// FlowControl is the writable flow rate of the insertion region.
type FlowControl interface {
	SetVolumeFlowRate(rate float64)
}

// VelocityControl is the writable velocity of the driven floor wall.
type VelocityControl interface {
	SetVelocity(v dynamo.Vec3)
}

type PhaseController struct {
	sched config.ScheduleConfig
	flow  FlowControl
	floor VelocityControl

	threshold float64
	kicks     int
	flowOff   bool
	resting   bool
	phase     Phase

	observers []Observer
}

func New(sched config.ScheduleConfig, flow FlowControl, floor VelocityControl) (*PhaseController, error) {
	if flow == nil {
		return nil, fmt.Errorf("insertion region: %w", dynamo.ErrMissingObject)
	}
	if floor == nil {
		return nil, fmt.Errorf("floor wall: %w", dynamo.ErrMissingObject)
	}
	c := &PhaseController{
		sched: sched,
		flow:  flow,
		floor: floor,
	}
	c.Reset()
	return c, nil
}

func (c *PhaseController) AddObserver(o Observer) { c.observers = append(c.observers, o) }

// Step applies the schedule for the step that just ended at clock.Time().
func (c *PhaseController) Step(clock dynamo.Clock) {
	t, dt := clock.Time(), clock.TimeStep()
	s := c.sched

	switch {
	case t < s.StopFlow && t+dt > s.StopFlow:
		c.flow.SetVolumeFlowRate(0)
		c.flowOff = true
		c.phase = WaitingForKick
		c.emit(Event{Kind: FlowShutoff, Time: t, Kick: c.kicks, Threshold: c.threshold})

	case t >= s.StopKick:
		c.floor.SetVelocity(dynamo.Vec3{})
		c.phase = Resting
		if !c.resting {
			c.resting = true
			c.emit(Event{Kind: Rest, Time: t, Kick: c.kicks, Threshold: c.threshold})
		}

	case t > c.threshold && t < c.threshold+s.PulseInterval:
		v := s.Amplitude
		if c.kicks%2 == 1 {
			v = -v
		}
		c.floor.SetVelocity(dynamo.Vec3{Z: v})
		c.threshold += s.PulseInterval
		c.kicks++
		c.phase = Kicking
		c.emit(Event{Kind: Kick, Time: t, Kick: c.kicks - 1, Velocity: v, Threshold: c.threshold})

	default:
		if c.phase == Kicking {
			c.phase = WaitingForKick
		}
	}
}

func (c *PhaseController) emit(e Event) {
	for _, o := range c.observers {
		o.OnTransition(e)
	}
}

// Reset restores the state held before the first step. The handles are not
// touched; restoring their flow rate and velocity is the caller's job.
func (c *PhaseController) Reset() {
	c.threshold = c.sched.KickStart
	c.kicks = 0
	c.flowOff = false
	c.resting = false
	c.phase = Filling
}

func (c *PhaseController) Phase() Phase       { return c.phase }
func (c *PhaseController) KickCount() int     { return c.kicks }
func (c *PhaseController) Threshold() float64 { return c.threshold }
func (c *PhaseController) FlowShutOff() bool  { return c.flowOff }

func (c *PhaseController) Schedule() config.ScheduleConfig { return c.sched }

// GetParams returns the schedule and controller state for display.
func (c *PhaseController) GetParams() map[string]float64 {
	return map[string]float64{
		"stop_flow":      c.sched.StopFlow,
		"amplitude":      c.sched.Amplitude,
		"pulse_interval": c.sched.PulseInterval,
		"kick_start":     c.sched.KickStart,
		"stop_kick":      c.sched.StopKick,
		"kick_threshold": c.threshold,
		"kick_count":     float64(c.kicks),
	}
}
