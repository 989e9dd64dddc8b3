package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/experiment"
	"github.com/san-kum/brazilnut/internal/sim"
)

func TestCollectorTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.OnTransition(control.Event{Kind: control.FlowShutoff, Time: 1})
	c.OnTransition(control.Event{Kind: control.Kick, Velocity: 1})
	c.OnTransition(control.Event{Kind: control.Kick, Velocity: -1})
	c.OnTransition(control.Event{Kind: control.Kick, Velocity: 1})
	c.OnTransition(control.Event{Kind: control.Rest})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.FlowShutoffs))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Kicks.WithLabelValues("up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Kicks.WithLabelValues("down")))
}

func TestCollectorSamples(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.OnStep(sim.Sample{Time: 2.5, Phase: control.Kicking, FloorVelocity: -1, FloorPosition: 0.25, Inserted: 42})

	assert.Equal(t, 2.5, testutil.ToFloat64(c.SimTime))
	assert.Equal(t, float64(control.Kicking), testutil.ToFloat64(c.Phase))
	assert.Equal(t, -1.0, testutil.ToFloat64(c.FloorVelocity))
	assert.Equal(t, 0.25, testutil.ToFloat64(c.FloorPosition))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.Inserted))
}

func TestCollectorReRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.FlowShutoffs.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.FlowShutoffs), "second collector should share registered metrics")
}

func TestCollectorIncompatibleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "brazilnut_phase",
		Help: "not a gauge",
	}))

	_, err := NewCollector(reg)
	assert.Error(t, err)
}

func TestCollectorDuringRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	exp, err := experiment.New(config.GetPreset("quick"))
	require.NoError(t, err)
	exp.AddObserver(c)
	exp.AddTransitionObserver(c)

	_, err = exp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.FlowShutoffs))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.Kicks.WithLabelValues("up")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.Kicks.WithLabelValues("down")))
	assert.Equal(t, float64(control.Resting), testutil.ToFloat64(c.Phase))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.FloorVelocity))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.OnTransition(control.Event{Kind: control.Kick, Velocity: 1})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `brazilnut_kicks_total{direction="up"} 1`)
	assert.Contains(t, string(body), "brazilnut_inserted_particles")
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "up", Direction(1))
	assert.Equal(t, "down", Direction(-0.5))
}
