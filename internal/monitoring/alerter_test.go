package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdant-group/esg-cli/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		EmptyRateThreshold:   0.50,
		QueueDepthThreshold:  50,
	})

	snap := &Snapshot{
		RunsTotal:     100,
		RunsComplete:  95,
		RunsFailed:    5,
		FailRate:      0.05,
		EmptyRate:     0.02,
		RunsQueued:    3,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		EmptyRateThreshold:   0.50,
	})

	snap := &Snapshot{
		RunsTotal:     20,
		RunsComplete:  12,
		RunsFailed:    8,
		FailRate:      0.4,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_ExtractionYield(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.90,
		EmptyRateThreshold:   0.50,
	})

	snap := &Snapshot{
		RunsTotal:     10,
		RunsComplete:  10,
		EmptyRate:     0.7,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertExtractionYield, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "70.0%")
}

func TestAlerter_Evaluate_QueueBacklog(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.90,
		EmptyRateThreshold:   0.90,
		QueueDepthThreshold:  50,
	})

	snap := &Snapshot{
		RunsTotal:     80,
		RunsQueued:    75,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertQueueBacklog, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "75 runs queued")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		EmptyRateThreshold:   0.30,
		QueueDepthThreshold:  10,
	})

	snap := &Snapshot{
		RunsTotal:     40,
		RunsComplete:  10,
		RunsFailed:    10,
		FailRate:      0.5,
		EmptyRate:     0.6,
		RunsQueued:    20,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 3)

	types := make(map[AlertType]bool)
	for _, al := range alerts {
		types[al.Type] = true
	}
	assert.True(t, types[AlertRunFailureRate])
	assert.True(t, types[AlertExtractionYield])
	assert.True(t, types[AlertQueueBacklog])
}

func TestAlerter_Evaluate_MinimumSample(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		EmptyRateThreshold:   0.10,
	})

	// Three finished runs are below the sample floor for rate alerts.
	snap := &Snapshot{
		RunsTotal:     3,
		RunsComplete:  1,
		RunsFailed:    2,
		FailRate:      0.666,
		EmptyRate:     1.0,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ZeroQueueThreshold(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.90,
		EmptyRateThreshold:   0.90,
		QueueDepthThreshold:  0,
	})

	snap := &Snapshot{
		RunsQueued:    999,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertRunFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertQueueBacklog, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ""})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	sent := a.SendAlerts(context.Background(), nil)
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertRunFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}
