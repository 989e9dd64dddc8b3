package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/sim"
)

type ExportData struct {
	Run     *RunMetadata   `json:"run"`
	Samples []ExportSample `json:"samples"`
	Events  []ExportEvent  `json:"events,omitempty"`
}

type ExportSample struct {
	Step          int     `json:"step"`
	Time          float64 `json:"time"`
	Phase         string  `json:"phase"`
	FlowRate      float64 `json:"flow_rate"`
	FloorVelocity float64 `json:"floor_velocity"`
	FloorPosition float64 `json:"floor_position"`
	Inserted      int     `json:"inserted"`
	Kicks         int     `json:"kicks"`
}

type ExportEvent struct {
	Kind      string  `json:"kind"`
	Time      float64 `json:"time"`
	Kick      int     `json:"kick"`
	Velocity  float64 `json:"velocity"`
	Threshold float64 `json:"threshold"`
}

func NewExportData(meta *RunMetadata, samples []sim.Sample, events []control.Event) ExportData {
	data := ExportData{
		Run:     meta,
		Samples: make([]ExportSample, len(samples)),
		Events:  make([]ExportEvent, len(events)),
	}
	for i, s := range samples {
		data.Samples[i] = ExportSample{
			Step:          s.Step,
			Time:          s.Time,
			Phase:         s.Phase.String(),
			FlowRate:      s.FlowRate,
			FloorVelocity: s.FloorVelocity,
			FloorPosition: s.FloorPosition,
			Inserted:      s.Inserted,
			Kicks:         s.Kicks,
		}
	}
	for i, e := range events {
		data.Events[i] = ExportEvent{
			Kind:      e.Kind.String(),
			Time:      e.Time,
			Kick:      e.Kick,
			Velocity:  e.Velocity,
			Threshold: e.Threshold,
		}
	}
	return data
}

// ExportJSON writes data to path, or to stdout when path is "-".
func ExportJSON(path string, data ExportData) error {
	if path == "-" {
		return EncodeJSON(os.Stdout, data)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return EncodeJSON(file, data)
}

func EncodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
