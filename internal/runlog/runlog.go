// Package runlog appends run lifecycle events to an NDJSON log file.
// Appending is best-effort observability: failures are logged at WARN and
// never fail the run that produced them.
package runlog

import (
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/model"
)

// Logger appends events to the NDJSON file at path. A nil Logger or an
// empty path disables logging.
type Logger struct {
	path string
}

// New creates a Logger writing to path.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Append writes one event as a single JSON line. The timestamp is filled
// in when the event carries none.
func (l *Logger) Append(event model.RunEvent) {
	if l == nil || l.path == "" {
		return
	}
	if event.TS.IsZero() {
		event.TS = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		zap.L().Warn("run log marshal failed", zap.String("event", event.Event), zap.Error(err))
		return
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		zap.L().Warn("run log open failed", zap.String("path", l.path), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		zap.L().Warn("run log write failed", zap.String("path", l.path), zap.Error(err))
	}
}

// Start appends a start event for the run.
func (l *Logger) Start(run *model.Run) {
	l.Append(model.RunEvent{
		Event:    model.EventStart,
		RunID:    run.ID,
		Doc:      run.Doc,
		Provider: run.Provider,
		Model:    run.Model,
	})
}

// Done appends a done event with the run's metric counts.
func (l *Logger) Done(run *model.Run) {
	l.Append(model.RunEvent{
		Event:    model.EventDone,
		RunID:    run.ID,
		Doc:      run.Doc,
		Provider: run.Provider,
		Model:    run.Model,
		Metrics:  run.MetricCount,
		Dropped:  run.DroppedCount,
	})
}

// Error appends an error event carrying the failure message.
func (l *Logger) Error(run *model.Run, err error) {
	l.Append(model.RunEvent{
		Event:    model.EventError,
		RunID:    run.ID,
		Doc:      run.Doc,
		Provider: run.Provider,
		Model:    run.Model,
		Error:    err.Error(),
	})
}
