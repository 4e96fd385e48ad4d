package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerateWireShape(t *testing.T) {
	t.Parallel()

	var got generateRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(generateResponse{ //nolint:errcheck
			Model:    "llama3.2",
			Response: `{"metrics":[]}`,
			Done:     true,
		})
	}))
	defer ts.Close()

	p := NewOllamaGenerate(ts.URL, "llama3.2")
	text, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "instructions"},
		{Role: RoleUser, Content: "snippets"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"metrics":[]}`, text)

	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "instructions\n\nsnippets", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, float64(0), got.Options.Temperature)
	assert.Equal(t, "json", got.Format)
}

func TestOllamaGenerateTrailingSlashBase(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		json.NewEncoder(w).Encode(generateResponse{Response: "ok"}) //nolint:errcheck
	}))
	defer ts.Close()

	p := NewOllamaGenerate(ts.URL+"/", "llama3.2")
	text, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestOllamaGenerateNon200(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer ts.Close()

	p := NewOllamaGenerate(ts.URL, "missing-model")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorContains(t, err, "unexpected status 404")
	assert.ErrorContains(t, err, "model not found")
}

func TestOllamaGenerateMalformedResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json")) //nolint:errcheck
	}))
	defer ts.Close()

	p := NewOllamaGenerate(ts.URL, "llama3.2")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorContains(t, err, "unmarshal generate response")
}

func TestOllamaGenerateConnectionRefused(t *testing.T) {
	t.Parallel()

	// Reserve a port, then close it so nothing is listening.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	p := NewOllamaGenerate(url, "llama3.2")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

func TestOllamaChatWireShape(t *testing.T) {
	t.Parallel()

	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{ //nolint:errcheck
			Model:   "llama3.2",
			Message: Message{Role: RoleAssistant, Content: `{"metrics":[]}`},
			Done:    true,
		})
	}))
	defer ts.Close()

	p := NewOllamaChat(ts.URL, "llama3.2")
	text, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "instructions"},
		{Role: RoleUser, Content: "snippets"},
		{Role: RoleUser, Content: "fix it"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"metrics":[]}`, text)

	assert.Equal(t, "llama3.2", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, RoleUser, got.Messages[1].Role)
	assert.Equal(t, "fix it", got.Messages[2].Content)
	assert.False(t, got.Stream)
	assert.Equal(t, float64(0), got.Options.Temperature)
	assert.Equal(t, "json", got.Format)
}

func TestOllamaChatNon200(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	p := NewOllamaChat(ts.URL, "llama3.2")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorContains(t, err, "unexpected status 503")
}
