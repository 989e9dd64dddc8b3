package observability

import (
	"fmt"

	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/sim"
	"github.com/san-kum/brazilnut/internal/storage"
	"github.com/san-kum/brazilnut/internal/tracing"
)

// Replay feeds a finished run through the collector: every transition,
// then the last sample for the state gauges.
func (c *Collector) Replay(samples []sim.Sample, events []control.Event) {
	for _, e := range events {
		c.OnTransition(e)
	}
	if n := len(samples); n > 0 {
		c.OnStep(samples[n-1])
	}
}

// ReplayStore replays every run in st in id order, which is creation
// order, and returns how many were replayed. Counters end up summed over all stored runs.
func (c *Collector) ReplayStore(st *storage.Store) (int, error) {
	runs, err := st.List()
	if err != nil {
		return 0, err
	}

	for i, run := range runs {
		samples, err := st.LoadSamples(run.ID)
		if err != nil {
			return i, fmt.Errorf("replay %s: %w", run.ID, err)
		}
		events, err := tracing.ReadRunEvents(st, run.ID)
		if err != nil {
			return i, fmt.Errorf("replay %s: %w", run.ID, err)
		}
		c.Replay(samples, events)
	}
	return len(runs), nil
}
