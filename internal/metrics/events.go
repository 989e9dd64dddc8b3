package metrics

import "github.com/san-kum/brazilnut/internal/sim"

type KickCount struct {
	kicks int
}

func NewKickCount() *KickCount { return &KickCount{} }

func (k *KickCount) Name() string         { return "kick_count" }
func (k *KickCount) Observe(s sim.Sample) { k.kicks = s.Kicks }
func (k *KickCount) Value() float64       { return float64(k.kicks) }
func (k *KickCount) Reset()               { k.kicks = 0 }

// InsertedParticles is the number of filler particles stamped so far.
type InsertedParticles struct {
	inserted int
}

func NewInsertedParticles() *InsertedParticles { return &InsertedParticles{} }

func (p *InsertedParticles) Name() string         { return "inserted_particles" }
func (p *InsertedParticles) Observe(s sim.Sample) { p.inserted = s.Inserted }
func (p *InsertedParticles) Value() float64       { return float64(p.inserted) }
func (p *InsertedParticles) Reset()               { p.inserted = 0 }

// ShutoffTime is the time of the first step that ended with the flow off,
// or -1 if the flow never stopped.
type ShutoffTime struct {
	time float64
}

func NewShutoffTime() *ShutoffTime { return &ShutoffTime{time: -1} }

func (s *ShutoffTime) Name() string { return "shutoff_time" }

func (s *ShutoffTime) Observe(smp sim.Sample) {
	if s.time < 0 && smp.FlowRate == 0 {
		s.time = smp.Time
	}
}

func (s *ShutoffTime) Value() float64 { return s.time }
func (s *ShutoffTime) Reset()         { s.time = -1 }
