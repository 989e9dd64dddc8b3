package metrics

import (
	"math"

	"github.com/san-kum/brazilnut/internal/sim"
)

// FloorExcursion is the largest distance of the floor from where it stood at
// the first observed step.
type FloorExcursion struct {
	name    string
	origin  float64
	max     float64
	samples int
}

func NewFloorExcursion() *FloorExcursion {
	return &FloorExcursion{
		name: "floor_excursion",
	}
}

func (e *FloorExcursion) Name() string {
	return e.name
}

func (e *FloorExcursion) Observe(s sim.Sample) {
	if e.samples == 0 {
		e.origin = s.FloorPosition
	}
	e.samples++
	e.max = math.Max(e.max, math.Abs(s.FloorPosition-e.origin))
}

func (e *FloorExcursion) Value() float64 {
	return e.max
}

func (e *FloorExcursion) Reset() {
	e.origin = 0
	e.max = 0
	e.samples = 0
}
