package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/brazilnut/internal/sim"
)

func floorTrace(positions ...float64) []sim.Sample {
	out := make([]sim.Sample, len(positions))
	for i, z := range positions {
		out[i] = sim.Sample{Step: i + 1, Time: float64(i+1) * 0.25, FloorPosition: z}
	}
	return out
}

func observeAll(m sim.Metric, samples []sim.Sample) {
	for _, s := range samples {
		m.Observe(s)
	}
}

func TestMeanFloorSpeed(t *testing.T) {
	m := NewMeanFloorSpeed()
	observeAll(m, []sim.Sample{
		{FloorVelocity: 1},
		{FloorVelocity: -1},
		{FloorVelocity: 0},
		{FloorVelocity: 2},
	})

	if math.Abs(m.Value()-1.0) > 1e-12 {
		t.Errorf("expected mean speed 1.0, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestFloorTravel(t *testing.T) {
	tests := []struct {
		name  string
		trace []float64
		want  float64
	}{
		{"still", []float64{0, 0, 0}, 0},
		{"up", []float64{0, 0.25, 0.5}, 0.5},
		{"up and back", []float64{0, 0.25, 0.5, 0.25, 0}, 1.0},
		{"single sample", []float64{0.5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFloorTravel()
			observeAll(m, floorTrace(tt.trace...))
			if math.Abs(m.Value()-tt.want) > 1e-12 {
				t.Errorf("expected travel %f, got %f", tt.want, m.Value())
			}
		})
	}
}

func TestFloorExcursion(t *testing.T) {
	m := NewFloorExcursion()
	observeAll(m, floorTrace(0.5, 0.75, 0.25, 0.0, 0.5))

	if m.Value() != 0.5 {
		t.Errorf("expected excursion 0.5, got %f", m.Value())
	}

	m.Reset()
	observeAll(m, floorTrace(1.0, 1.0))
	if m.Value() != 0 {
		t.Errorf("expected zero excursion for a still floor, got %f", m.Value())
	}
}

func TestKickCountAndInserted(t *testing.T) {
	kicks := NewKickCount()
	inserted := NewInsertedParticles()

	for _, s := range []sim.Sample{{Kicks: 0, Inserted: 3}, {Kicks: 2, Inserted: 10}, {Kicks: 5, Inserted: 10}} {
		kicks.Observe(s)
		inserted.Observe(s)
	}

	if kicks.Value() != 5 {
		t.Errorf("expected 5 kicks, got %f", kicks.Value())
	}
	if inserted.Value() != 10 {
		t.Errorf("expected 10 inserted, got %f", inserted.Value())
	}
}

func TestShutoffTime(t *testing.T) {
	m := NewShutoffTime()
	if m.Value() != -1 {
		t.Fatalf("expected -1 before any shutoff, got %f", m.Value())
	}

	observeAll(m, []sim.Sample{
		{Time: 0.5, FlowRate: 1},
		{Time: 1.0, FlowRate: 0},
		{Time: 1.5, FlowRate: 0},
	})
	if m.Value() != 1.0 {
		t.Errorf("expected shutoff at 1.0, got %f", m.Value())
	}

	m.Reset()
	observeAll(m, []sim.Sample{{Time: 0.5, FlowRate: 1}})
	if m.Value() != -1 {
		t.Errorf("expected -1 when the flow never stops, got %f", m.Value())
	}
}

func TestKickFrequency(t *testing.T) {
	m := NewKickFrequency()
	if m.Value() != 0 {
		t.Errorf("expected 0 before any sample, got %f", m.Value())
	}

	// floor flips every 0.25s: one full cycle per 0.5s
	const dt = 0.001
	for i := 1; i <= 4000; i++ {
		v := 1.0
		if (i/250)%2 == 1 {
			v = -1
		}
		m.Observe(sim.Sample{Step: i, Time: float64(i) * dt, FloorVelocity: v})
	}
	if f := m.Value(); math.Abs(f-2) > 0.15 {
		t.Errorf("expected ~2Hz, got %f", f)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected 0 after reset, got %f", m.Value())
	}
}

func TestMetricNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range []sim.Metric{
		NewMeanFloorSpeed(), NewFloorTravel(), NewFloorExcursion(),
		NewKickCount(), NewInsertedParticles(), NewShutoffTime(),
		NewKickFrequency(),
	} {
		if m.Name() == "" {
			t.Error("metric with empty name")
		}
		if seen[m.Name()] {
			t.Errorf("duplicate metric name %q", m.Name())
		}
		seen[m.Name()] = true
	}
}
