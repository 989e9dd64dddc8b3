package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/brazilnut/internal/config"
	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/dynamo"
	"github.com/san-kum/brazilnut/internal/sim"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
	EventsFile   = "events.sqlite3"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Steps       int                `json:"steps"`
	Samples     int                `json:"samples"`
	Kicks       int                `json:"kicks"`
	Transitions int                `json:"transitions"`
	Config      *config.Config     `json:"config"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewRunID returns a fresh, time-sortable run id.
func NewRunID() string {
	return xid.New().String()
}

// RunDir is the directory holding everything recorded for runID.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// CreateRunDir makes the directory for runID ahead of SaveAs, so that
// files such as the event trace can be written there during the run.
func (s *Store) CreateRunDir(runID string) (string, error) {
	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Save stores result under a new run id and returns it.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	runID := NewRunID()
	if err := s.SaveAs(runID, cfg, result); err != nil {
		return "", err
	}
	return runID, nil
}

// SaveAs stores result under runID. The run directory may already exist,
// e.g. when an event trace was written into it during the run.
func (s *Store) SaveAs(runID string, cfg *config.Config, result *sim.Result) error {
	runDir, err := s.CreateRunDir(runID)
	if err != nil {
		return err
	}

	kicks := 0
	for _, e := range result.Events {
		if e.Kind == control.Kick {
			kicks++
		}
	}

	meta := RunMetadata{
		ID:          runID,
		Name:        cfg.Name,
		Timestamp:   time.Now(),
		Steps:       result.StepsTaken,
		Samples:     len(result.Samples),
		Kicks:       kicks,
		Transitions: len(result.Events),
		Config:      cfg,
		Metrics:     result.Metrics,
	}

	err = writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return err
	}

	return writeFile(filepath.Join(runDir, samplesFile), func(w io.Writer) error {
		return WriteSamplesCSV(w, result.Samples)
	})
}

var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// writeFile creates path and fills it with write. A failed Close is
// returned like any write error.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

var samplesHeader = []string{"step", "time", "phase", "flow_rate", "floor_velocity", "floor_position", "inserted", "kicks"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteSamplesCSV writes samples with a header row.
func WriteSamplesCSV(out io.Writer, samples []sim.Sample) error {
	w := csv.NewWriter(out)

	if err := w.Write(samplesHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		row := []string{
			strconv.Itoa(smp.Step),
			formatFloat(smp.Time),
			smp.Phase.String(),
			formatFloat(smp.FlowRate),
			formatFloat(smp.FloorVelocity),
			formatFloat(smp.FloorPosition),
			strconv.Itoa(smp.Inserted),
			strconv.Itoa(smp.Kicks),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: corrupt metadata: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.RunDir(runID), samplesFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}
	defer file.Close()

	return ReadSamplesCSV(file)
}

// ReadSamplesCSV parses what WriteSamplesCSV wrote. Malformed rows are
// skipped.
func ReadSamplesCSV(in io.Reader) ([]sim.Sample, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		smp, ok := parseSample(record)
		if !ok {
			continue
		}
		samples = append(samples, smp)
	}

	return samples, nil
}

func parseSample(record []string) (sim.Sample, bool) {
	if len(record) != len(samplesHeader) {
		return sim.Sample{}, false
	}

	var smp sim.Sample
	var err error
	ints := []struct {
		field *int
		text  string
	}{{&smp.Step, record[0]}, {&smp.Inserted, record[6]}, {&smp.Kicks, record[7]}}
	for _, f := range ints {
		if *f.field, err = strconv.Atoi(f.text); err != nil {
			return sim.Sample{}, false
		}
	}

	floats := []struct {
		field *float64
		text  string
	}{{&smp.Time, record[1]}, {&smp.FlowRate, record[3]}, {&smp.FloorVelocity, record[4]}, {&smp.FloorPosition, record[5]}}
	for _, f := range floats {
		if *f.field, err = strconv.ParseFloat(f.text, 64); err != nil {
			return sim.Sample{}, false
		}
	}

	phase, ok := control.ParsePhase(record[2])
	if !ok {
		return sim.Sample{}, false
	}
	smp.Phase = phase

	return smp, true
}
