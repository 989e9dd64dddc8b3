package metrics

import (
	"math"

	"github.com/san-kum/brazilnut/internal/sim"
)

// MeanFloorSpeed is the mean absolute floor velocity over all observed
// steps, the drive's analogue of control effort.
type MeanFloorSpeed struct {
	name    string
	sum     float64
	samples int
}

func NewMeanFloorSpeed() *MeanFloorSpeed {
	return &MeanFloorSpeed{
		name: "mean_floor_speed",
	}
}

func (m *MeanFloorSpeed) Name() string {
	return m.name
}

func (m *MeanFloorSpeed) Observe(s sim.Sample) {
	m.sum += math.Abs(s.FloorVelocity)
	m.samples++
}

func (m *MeanFloorSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanFloorSpeed) Reset() {
	m.sum = 0
	m.samples = 0
}

// FloorTravel is the total distance covered by the floor, summed over
// both directions.
type FloorTravel struct {
	name    string
	travel  float64
	last    float64
	started bool
}

func NewFloorTravel() *FloorTravel {
	return &FloorTravel{name: "floor_travel"}
}

func (f *FloorTravel) Name() string { return f.name }

func (f *FloorTravel) Observe(s sim.Sample) {
	if f.started {
		f.travel += math.Abs(s.FloorPosition - f.last)
	}
	f.last = s.FloorPosition
	f.started = true
}

func (f *FloorTravel) Value() float64 { return f.travel }

func (f *FloorTravel) Reset() {
	f.travel = 0
	f.last = 0
	f.started = false
}
