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

func TestOpenAIWireShape(t *testing.T) {
	t.Parallel()

	var got openaiRequest
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openaiResponse{ //nolint:errcheck
			ID: "chatcmpl-1",
			Choices: []openaiChoice{
				{Index: 0, Message: Message{Role: RoleAssistant, Content: `{"metrics":[]}`}},
			},
		})
	}))
	defer ts.Close()

	p := NewOpenAI(ts.URL, "sk-test", "gpt-4o-mini")
	text, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "instructions"},
		{Role: RoleUser, Content: "snippets"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"metrics":[]}`, text)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, float64(0), got.Temperature)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIEmptyChoices(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{ID: "chatcmpl-2"}) //nolint:errcheck
	}))
	defer ts.Close()

	p := NewOpenAI(ts.URL, "sk-test", "gpt-4o-mini")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAINon200(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	p := NewOpenAI(ts.URL, "bad-key", "gpt-4o-mini")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorContains(t, err, "unexpected status 401")
	assert.ErrorContains(t, err, "invalid api key")
}
