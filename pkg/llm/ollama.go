package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// generateRequest is the request body for POST /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
	Format  string          `json:"format"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is the response from POST /api/generate.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// chatRequest is the request body for POST /api/chat.
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []Message       `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  generateOptions `json:"options"`
	Format   string          `json:"format"`
}

// chatResponse is the response from POST /api/chat.
type chatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

type ollamaGenerateClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewOllamaGenerate creates a Provider backed by Ollama's generate endpoint.
// The endpoint takes a single prompt string, so the conversation is flattened
// before sending.
func NewOllamaGenerate(baseURL, model string, opts ...Option) Provider {
	return &ollamaGenerateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    buildHTTPClient(defaultGenerateTimeout, opts),
	}
}

func (c *ollamaGenerateClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	req := generateRequest{
		Model:   c.model,
		Prompt:  flattenPrompt(msgs),
		Stream:  false,
		Options: generateOptions{Temperature: 0},
		Format:  "json",
	}

	respBody, err := postJSON(ctx, c.http, c.baseURL+"/api/generate", nil, req)
	if err != nil {
		return "", providerErr(ProviderOllamaGenerate, err)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", providerErr(ProviderOllamaGenerate, eris.Wrap(err, "llm: unmarshal generate response"))
	}

	return result.Response, nil
}

type ollamaChatClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewOllamaChat creates a Provider backed by Ollama's chat endpoint.
func NewOllamaChat(baseURL, model string, opts ...Option) Provider {
	return &ollamaChatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    buildHTTPClient(defaultChatTimeout, opts),
	}
}

func (c *ollamaChatClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   false,
		Options:  generateOptions{Temperature: 0},
		Format:   "json",
	}

	respBody, err := postJSON(ctx, c.http, c.baseURL+"/api/chat", nil, req)
	if err != nil {
		return "", providerErr(ProviderOllamaChat, err)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", providerErr(ProviderOllamaChat, eris.Wrap(err, "llm: unmarshal chat response"))
	}

	return result.Message.Content, nil
}

// flattenPrompt collapses a conversation into the single prompt string the
// generate endpoint expects: system text first, then every remaining turn in
// order, separated by blank lines.
func flattenPrompt(msgs []Message) string {
	var b strings.Builder
	write := func(content string) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(content)
	}
	for _, m := range msgs {
		if m.Role == RoleSystem {
			write(m.Content)
		}
	}
	for _, m := range msgs {
		if m.Role != RoleSystem {
			write(m.Content)
		}
	}
	return b.String()
}

// postJSON sends a JSON POST and returns the response body, treating any
// non-200 status as an error.
func postJSON(ctx context.Context, hc *http.Client, url string, header http.Header, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "llm: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "llm: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "llm: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "llm: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("llm: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
