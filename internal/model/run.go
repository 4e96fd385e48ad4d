package model

import "time"

// RunStatus represents the current state of an extraction run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single extraction run for one document.
type Run struct {
	ID           string     `json:"id"`
	Doc          string     `json:"doc"`
	SourcePath   string     `json:"source_path"`
	Provider     string     `json:"provider"`
	Model        string     `json:"model"`
	Status       RunStatus  `json:"status"`
	MetricCount  int        `json:"metric_count"`
	DroppedCount int        `json:"dropped_count"`
	Attempts     int        `json:"attempts"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Duration returns the run's elapsed time, zero if still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run log event names.
const (
	EventStart = "start"
	EventDone  = "done"
	EventError = "error"
)

// RunEvent is one line of the append-only NDJSON run log.
type RunEvent struct {
	Event    string    `json:"event"`
	RunID    string    `json:"run_id"`
	Doc      string    `json:"doc"`
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	TS       time.Time `json:"ts"`
	Metrics  int       `json:"metrics,omitempty"`
	Dropped  int       `json:"dropped,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// SummaryRow is one row of the batch summary CSV. Failed documents get a
// degraded row instead of aborting the batch.
type SummaryRow struct {
	Doc        string `csv:"doc" json:"doc"`
	Status     string `csv:"status" json:"status"`
	Metrics    int    `csv:"metrics" json:"metrics"`
	Dropped    int    `csv:"dropped" json:"dropped"`
	Attempts   int    `csv:"attempts" json:"attempts"`
	DurationMS int64  `csv:"duration_ms" json:"duration_ms"`
	Error      string `csv:"error,omitempty" json:"error,omitempty"`
}
