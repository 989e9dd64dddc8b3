// Package server exposes stored runs and live metrics over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/process"

	"github.com/san-kum/brazilnut/internal/dynamo"
	"github.com/san-kum/brazilnut/internal/storage"
	"github.com/san-kum/brazilnut/internal/tracing"
)

type Server struct {
	store   *storage.Store
	metrics http.Handler
	logger  zerolog.Logger

	// OnReady, if set, is called with the bound address once the
	// listener is open.
	OnReady func(addr net.Addr)
}

// New serves runs from store. metrics may be nil, in which case /metrics
// is not routed.
func New(store *storage.Store, metrics http.Handler, logger zerolog.Logger) *Server {
	return &Server{store: store, metrics: metrics, logger: logger}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	r.HandleFunc("/runs", s.listRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}", s.getRun).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/samples", s.getSamples).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/events", s.getEvents).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/export", s.exportRun).Methods(http.MethodGet)
	r.HandleFunc("/resources", s.listResources).Methods(http.MethodGet)
	r.HandleFunc("/profile", s.collectProfile).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("server_started")
	if s.OnReady != nil {
		s.OnReady(listener.Addr())
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// BrowseURL turns a listen address into a URL a local browser can open.
func BrowseURL(addr net.Addr, path string) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String() + path
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + path
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	runs, err := s.store.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	meta, err := s.store.Load(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, meta)
}

func (s *Server) getSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.store.LoadSamples(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, storage.NewExportData(nil, samples, nil).Samples)
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	events, err := tracing.ReadRunEvents(s.store, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, storage.NewExportData(nil, nil, events).Events)
}

func (s *Server) exportRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	meta, err := s.store.Load(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	samples, err := s.store.LoadSamples(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	events, err := tracing.ReadRunEvents(s.store, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, storage.NewExportData(meta, samples, events))
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
	Goroutines int     `json:"goroutines"`
}

// listResources reports the serving process's own CPU and resident memory.
func (s *Server) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		s.writeError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		s.writeError(w, err)
		return
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: mem.RSS,
		Goroutines: runtime.NumGoroutine(),
	})
}

type profileEntry struct {
	Function string  `json:"function"`
	Flat     int64   `json:"flat"`
	Percent  float64 `json:"percent"`
}

type profileRsp struct {
	Seconds float64        `json:"seconds"`
	Samples int            `json:"samples"`
	Top     []profileEntry `json:"top"`
}

const maxProfileSeconds = 30

// collectProfile records a CPU profile of the server process for
// ?seconds= (default 1) and returns the functions with the most samples.
func (s *Server) collectProfile(w http.ResponseWriter, r *http.Request) {
	seconds := 1.0
	if v := r.URL.Query().Get("seconds"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || parsed > maxProfileSeconds {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "seconds must be in (0, 30]"})
			return
		}
		seconds = parsed
	}

	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		s.writeError(w, err)
		return
	}
	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
	case <-r.Context().Done():
	}
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, profileRsp{
		Seconds: seconds,
		Samples: len(prof.Sample),
		Top:     topFunctions(prof, 20),
	})
}

// topFunctions sums the first sample value per leaf function.
func topFunctions(prof *profile.Profile, n int) []profileEntry {
	flat := make(map[string]int64)
	var total int64
	for _, sample := range prof.Sample {
		if len(sample.Location) == 0 || len(sample.Location[0].Line) == 0 || len(sample.Value) == 0 {
			continue
		}
		fn := sample.Location[0].Line[0].Function
		if fn == nil {
			continue
		}
		flat[fn.Name] += sample.Value[0]
		total += sample.Value[0]
	}

	out := make([]profileEntry, 0, len(flat))
	for name, v := range flat {
		out = append(out, profileEntry{
			Function: name,
			Flat:     v,
			Percent:  100 * float64(v) / float64(total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flat != out[j].Flat {
			return out[i].Flat > out[j].Flat
		}
		return out[i].Function < out[j].Function
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, dynamo.ErrRunNotFound) {
		status = http.StatusNotFound
	} else {
		s.logger.Error().Err(err).Msg("request_failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = storage.EncodeJSON(w, v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := s.logger.Info()
		if rec.status >= 500 {
			event = s.logger.Error()
		} else if rec.status >= 400 {
			event = s.logger.Warn()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}
