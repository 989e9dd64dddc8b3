// Package tracing records controller transitions into a SQLite database so
// that a run's timeline can be inspected after the fact.
package tracing

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/san-kum/brazilnut/internal/control"
)

const defaultBatchSize = 1000

// SQLiteWriter buffers transition events and writes them in batches, one
// transaction per batch. It implements control.Observer.
type SQLiteWriter struct {
	db        *sql.DB
	statement *sql.Stmt
	path      string

	mu        sync.Mutex
	pending   []control.Event
	seq       int
	batchSize int
	closed    bool
	err       error
}

// NewSQLiteWriter creates the database at path. The file must not exist.
// Buffered events are flushed at process exit if Close was never called.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("trace %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	w := &SQLiteWriter{
		db:        db,
		path:      path,
		batchSize: defaultBatchSize,
	}
	if err := w.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	if w.statement, err = db.Prepare(`INSERT INTO events VALUES (?, ?, ?, ?, ?, ?, ?)`); err != nil {
		db.Close()
		return nil, err
	}

	atexit.Register(func() { _ = w.Close() })

	return w, nil
}

func (w *SQLiteWriter) createTable() error {
	_, err := w.db.Exec(`
		CREATE TABLE events
		(
			event_id  VARCHAR(20) NOT NULL,
			seq       INTEGER     NOT NULL,
			kind      VARCHAR(20) NOT NULL,
			time      FLOAT       NOT NULL,
			kick      INTEGER     NOT NULL,
			velocity  FLOAT       NOT NULL,
			threshold FLOAT       NOT NULL
		);
		CREATE INDEX events_seq_index ON events (seq);
		CREATE INDEX events_kind_index ON events (kind);
	`)
	return err
}

// SetBatchSize sets how many events are buffered before a flush.
func (w *SQLiteWriter) SetBatchSize(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n > 0 {
		w.batchSize = n
	}
}

func (w *SQLiteWriter) Path() string { return w.path }

// OnTransition buffers e. A failed flush is kept and reported by Close.
func (w *SQLiteWriter) OnTransition(e control.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.pending = append(w.pending, e)
	if len(w.pending) >= w.batchSize {
		w.recordErr(w.flushLocked())
	}
}

// Flush writes all buffered events.
func (w *SQLiteWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.flushLocked()
}

func (w *SQLiteWriter) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(w.statement)
	for _, e := range w.pending {
		_, err := stmt.Exec(xid.New().String(), w.seq, e.Kind.String(), e.Time, e.Kick, e.Velocity, e.Threshold)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s event at t=%g: %w", e.Kind, e.Time, err)
		}
		w.seq++
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	w.pending = nil
	return nil
}

func (w *SQLiteWriter) recordErr(err error) {
	if err != nil && w.err == nil {
		w.err = err
	}
}

// Close flushes pending events and closes the database. It is safe to call
// more than once.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.err
	}

	w.recordErr(w.flushLocked())
	w.closed = true
	w.recordErr(w.statement.Close())
	w.recordErr(w.db.Close())
	return w.err
}

// ReadEvents loads every event in the trace at path, in the order written.
func ReadEvents(path string) ([]control.Event, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT kind, time, kick, velocity, threshold FROM events ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]control.Event, 0)
	for rows.Next() {
		var (
			kind string
			e    control.Event
		)
		if err := rows.Scan(&kind, &e.Time, &e.Kick, &e.Velocity, &e.Threshold); err != nil {
			return nil, err
		}
		k, ok := control.ParseEventKind(kind)
		if !ok {
			return nil, errors.New("unknown event kind in trace: " + kind)
		}
		e.Kind = k
		events = append(events, e)
	}

	return events, rows.Err()
}
