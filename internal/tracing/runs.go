package tracing

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/storage"
)

// ReadRunEvents loads the transition trace of a stored run. A run recorded
// without a trace yields an empty, non-nil slice; an unknown run yields
// dynamo.ErrRunNotFound from the store.
func ReadRunEvents(st *storage.Store, runID string) ([]control.Event, error) {
	if _, err := st.Load(runID); err != nil {
		return nil, err
	}
	events, err := ReadEvents(filepath.Join(st.RunDir(runID), storage.EventsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []control.Event{}, nil
	}
	return events, err
}
