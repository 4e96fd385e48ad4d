package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdant-group/esg-cli/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestAppendWritesOneLinePerEvent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.ndjson")
	l := New(path)

	run := &model.Run{ID: "run-1", Doc: "acme-2023", Provider: "ollama-generate", Model: "llama3.2"}
	l.Start(run)

	run.MetricCount = 3
	run.DroppedCount = 1
	l.Done(run)

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var start model.RunEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &start))
	assert.Equal(t, model.EventStart, start.Event)
	assert.Equal(t, "run-1", start.RunID)
	assert.Equal(t, "acme-2023", start.Doc)
	assert.False(t, start.TS.IsZero())

	var done model.RunEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &done))
	assert.Equal(t, model.EventDone, done.Event)
	assert.Equal(t, 3, done.Metrics)
	assert.Equal(t, 1, done.Dropped)
}

func TestAppendErrorEvent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.ndjson")
	l := New(path)

	run := &model.Run{ID: "run-2", Doc: "beta-2023", Provider: "openai", Model: "gpt-4o-mini"}
	l.Error(run, eris.New("llm: unexpected status 401"))

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var event model.RunEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, model.EventError, event.Event)
	assert.Contains(t, event.Error, "unexpected status 401")
}

func TestAppendKeepsProvidedTimestamp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.ndjson")
	l := New(path)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.Append(model.RunEvent{Event: model.EventStart, RunID: "run-3", TS: ts})

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var event model.RunEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.True(t, ts.Equal(event.TS))
}

func TestAppendToExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(`{"event":"start","run_id":"earlier"}`+"\n"), 0o644))

	New(path).Append(model.RunEvent{Event: model.EventDone, RunID: "run-4"})

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "earlier")
	assert.Contains(t, lines[1], "run-4")
}

func TestAppendDisabled(t *testing.T) {
	t.Parallel()

	// Neither a nil logger nor an empty path should panic or create files.
	var l *Logger
	l.Append(model.RunEvent{Event: model.EventStart})
	New("").Append(model.RunEvent{Event: model.EventStart})
}

func TestAppendSwallowsWriteErrors(t *testing.T) {
	t.Parallel()

	// Point at a directory so the open fails; Append must not panic.
	dir := t.TempDir()
	New(dir).Append(model.RunEvent{Event: model.EventStart, RunID: "run-5"})
}
