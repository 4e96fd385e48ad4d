package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/verdant-group/esg-cli/internal/model"
)

func TestComputeRunStats(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f1 := started.Add(2 * time.Second)
	f2 := started.Add(4 * time.Second)

	runs := []*model.Run{
		{Status: model.RunStatusComplete, MetricCount: 3, DroppedCount: 1, StartedAt: started, FinishedAt: &f1},
		{Status: model.RunStatusComplete, MetricCount: 2, StartedAt: started, FinishedAt: &f2},
		{Status: model.RunStatusFailed},
		{Status: model.RunStatusQueued},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Other)
	assert.Equal(t, 5, s.Metrics)
	assert.Equal(t, 1, s.Dropped)
	assert.InDelta(t, 3.0, s.AvgDurSecs, 0.001)
}

func TestComputeRunStatsEmpty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AvgDurSecs)
}

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)

	var buf bytes.Buffer
	formatRunsList(&buf, []*model.Run{
		{
			ID:          "0123456789abcdef0123",
			Doc:         "acme-sustainability-report-2023-final",
			Status:      model.RunStatusComplete,
			MetricCount: 3,
			StartedAt:   started,
			FinishedAt:  &finished,
		},
	})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef0123")
	assert.Contains(t, out, "acme-sustainability-report-...")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "1.5s")
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 5, Complete: 3, Failed: 2, Metrics: 9, AvgDurSecs: 2.5})

	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "Avg duration:")
	assert.Contains(t, out, "2.5s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "01234567", truncateID("0123456789abcdef"))
	assert.Equal(t, "short", truncateID("short"))
}
