// Package monitoring watches extraction health and raises webhook alerts
// when failure or yield thresholds are breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/store"
)

// Snapshot holds a point-in-time view of extraction health.
type Snapshot struct {
	// Run counts within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsQueued   int     `json:"runs_queued"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`

	// Extraction yield within the window. EmptyRate is the share of
	// completed runs that produced zero metrics.
	MetricsTotal int     `json:"metrics_total"`
	DroppedTotal int     `json:"dropped_total"`
	EmptyRate    float64 `json:"empty_rate"`

	AvgDurationMS int64 `json:"avg_duration_ms"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers run statistics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new health collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// scanLimit bounds how many recent runs one collection reads.
const scanLimit = 10000

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	// The store contract has no time predicate, so the window filter
	// happens here. ListRuns returns newest first.
	runs, err := c.store.ListRuns(ctx, scanLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var totalDur time.Duration
	var timed int
	var emptyComplete int

	for _, r := range runs {
		if r.StartedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		snap.MetricsTotal += r.MetricCount
		snap.DroppedTotal += r.DroppedCount
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			if r.MetricCount == 0 {
				emptyComplete++
			}
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued:
			snap.RunsQueued++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		if d := r.Duration(); d > 0 {
			totalDur += d
			timed++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RunsComplete > 0 {
		snap.EmptyRate = float64(emptyComplete) / float64(snap.RunsComplete)
	}
	if timed > 0 {
		snap.AvgDurationMS = (totalDur / time.Duration(timed)).Milliseconds()
	}

	return snap, nil
}
