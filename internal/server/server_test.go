package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/experiment"
	"github.com/san-kum/brazilnut/internal/observability"
	"github.com/san-kum/brazilnut/internal/storage"
	"github.com/san-kum/brazilnut/internal/tracing"
)

type fixture struct {
	server *httptest.Server
	store  *storage.Store
	runID  string
	bare   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storage.New(t.TempDir())
	require.NoError(t, store.Init())

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := config.GetPreset("quick")
	exp, err := experiment.New(cfg)
	require.NoError(t, err)
	exp.AddObserver(collector)
	exp.AddTransitionObserver(collector)

	runID := storage.NewRunID()
	runDir, err := store.CreateRunDir(runID)
	require.NoError(t, err)
	w, err := tracing.NewSQLiteWriter(filepath.Join(runDir, storage.EventsFile))
	require.NoError(t, err)
	exp.AddTransitionObserver(w)

	result, err := exp.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, store.SaveAs(runID, cfg, result))

	bare, err := store.Save(cfg, result)
	require.NoError(t, err)

	srv := New(store, collector.Handler(), zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &fixture{server: ts, store: store, runID: runID, bare: bare}
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestListAndGetRuns(t *testing.T) {
	f := newFixture(t)

	var runs []storage.RunMetadata
	require.Equal(t, http.StatusOK, f.get(t, "/runs", &runs))
	assert.Len(t, runs, 2)

	var meta storage.RunMetadata
	require.Equal(t, http.StatusOK, f.get(t, "/runs/"+f.runID, &meta))
	assert.Equal(t, f.runID, meta.ID)
	assert.Equal(t, 10, meta.Kicks)
	assert.Equal(t, "quick", meta.Name)
}

func TestGetSamples(t *testing.T) {
	f := newFixture(t)

	var samples []storage.ExportSample
	require.Equal(t, http.StatusOK, f.get(t, "/runs/"+f.runID+"/samples", &samples))
	require.NotEmpty(t, samples)
	assert.Equal(t, "filling", samples[0].Phase)
	assert.Equal(t, "resting", samples[len(samples)-1].Phase)
}

func TestGetEvents(t *testing.T) {
	f := newFixture(t)

	var events []storage.ExportEvent
	require.Equal(t, http.StatusOK, f.get(t, "/runs/"+f.runID+"/events", &events))
	require.Len(t, events, 12)
	assert.Equal(t, "flow_shutoff", events[0].Kind)
	assert.Equal(t, "kick", events[1].Kind)
	assert.Equal(t, "rest", events[11].Kind)

	var none []storage.ExportEvent
	require.Equal(t, http.StatusOK, f.get(t, "/runs/"+f.bare+"/events", &none))
	assert.Empty(t, none)
}

func TestExportRun(t *testing.T) {
	f := newFixture(t)

	var data storage.ExportData
	require.Equal(t, http.StatusOK, f.get(t, "/runs/"+f.runID+"/export", &data))
	require.NotNil(t, data.Run)
	assert.Equal(t, f.runID, data.Run.ID)
	assert.NotEmpty(t, data.Samples)
	assert.Len(t, data.Events, 12)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/runs/missing", "/runs/missing/samples", "/runs/missing/events", "/runs/missing/export"} {
		assert.Equal(t, http.StatusNotFound, f.get(t, path, nil), path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	body := scrape(t, f.server.URL+"/metrics")
	assert.Contains(t, body, `brazilnut_kicks_total{direction="up"} 5`)
	assert.Contains(t, body, `brazilnut_kicks_total{direction="down"} 5`)
	assert.Contains(t, body, "brazilnut_flow_shutoffs_total 1")
}

func TestMetricsEndpoint_ReplayedStore(t *testing.T) {
	f := newFixture(t)

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	n, err := collector.ReplayStore(f.store)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ts := httptest.NewServer(New(f.store, collector.Handler(), zerolog.Nop()).Router())
	defer ts.Close()

	// only the traced run carries transitions
	body := scrape(t, ts.URL+"/metrics")
	assert.Contains(t, body, `brazilnut_kicks_total{direction="up"} 5`)
	assert.Contains(t, body, "brazilnut_flow_shutoffs_total 1")
	assert.Contains(t, body, "brazilnut_phase 3")
}

func scrape(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.server.URL+"/runs", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestResourcesEndpoint(t *testing.T) {
	f := newFixture(t)

	var res map[string]float64
	require.Equal(t, http.StatusOK, f.get(t, "/resources", &res))
	assert.Contains(t, res, "cpu_percent")
	assert.Greater(t, res["memory_size"], 0.0)
	assert.GreaterOrEqual(t, res["goroutines"], 1.0)
}

func TestBrowseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"[::]:8080", "http://localhost:8080/runs"},
		{"0.0.0.0:9000", "http://localhost:9000/runs"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/runs"},
	}

	for _, tt := range tests {
		addr, err := net.ResolveTCPAddr("tcp", tt.addr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, BrowseURL(addr, "/runs"), tt.addr)
	}
}

func TestListenAndServe_OnReady(t *testing.T) {
	srv := New(storage.New(t.TempDir()), nil, zerolog.Nop())
	ready := make(chan net.Addr, 1)
	srv.OnReady = func(a net.Addr) { ready <- a }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	addr := <-ready
	resp, err := http.Get(BrowseURL(addr, "/runs"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}

func TestProfileEndpoint(t *testing.T) {
	f := newFixture(t)

	var rsp struct {
		Seconds float64 `json:"seconds"`
		Samples int     `json:"samples"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/profile?seconds=0.05", &rsp))
	assert.Equal(t, 0.05, rsp.Seconds)
	assert.GreaterOrEqual(t, rsp.Samples, 0)

	for _, bad := range []string{"0", "-1", "31", "abc"} {
		assert.Equal(t, http.StatusBadRequest, f.get(t, "/profile?seconds="+bad, nil), bad)
	}
}

func TestTopFunctions(t *testing.T) {
	fa := &profile.Function{ID: 1, Name: "a"}
	fb := &profile.Function{ID: 2, Name: "b"}
	la := &profile.Location{ID: 1, Line: []profile.Line{{Function: fa}}}
	lb := &profile.Location{ID: 2, Line: []profile.Line{{Function: fb}}}

	prof := &profile.Profile{
		Sample: []*profile.Sample{
			{Location: []*profile.Location{la}, Value: []int64{3}},
			{Location: []*profile.Location{lb}, Value: []int64{1}},
			{Location: []*profile.Location{la, lb}, Value: []int64{4}},
			{Value: []int64{100}},
		},
	}

	top := topFunctions(prof, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].Function)
	assert.Equal(t, int64(7), top[0].Flat)
	assert.InDelta(t, 87.5, top[0].Percent, 1e-9)
}
