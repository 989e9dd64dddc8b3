package metrics

import (
	"github.com/san-kum/brazilnut/internal/analysis"
	"github.com/san-kum/brazilnut/internal/sim"
)

// KickFrequency is the dominant frequency of the floor velocity. Two kicks
// make one full oscillation, so a regular schedule reports
// 1/(2*pulse_interval).
type KickFrequency struct {
	name       string
	velocities []float64
	first      float64
	last       float64
}

func NewKickFrequency() *KickFrequency {
	return &KickFrequency{
		name: "kick_frequency",
	}
}

func (k *KickFrequency) Name() string {
	return k.name
}

func (k *KickFrequency) Observe(s sim.Sample) {
	if len(k.velocities) == 0 {
		k.first = s.Time
	}
	k.last = s.Time
	k.velocities = append(k.velocities, s.FloorVelocity)
}

func (k *KickFrequency) Value() float64 {
	n := len(k.velocities)
	if n < 2 {
		return 0
	}
	dt := (k.last - k.first) / float64(n-1)
	return analysis.DominantFrequency(k.velocities, dt)
}

func (k *KickFrequency) Reset() {
	k.velocities = k.velocities[:0]
	k.first = 0
	k.last = 0
}
