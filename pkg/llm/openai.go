package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// openaiRequest is the request body for POST /v1/chat/completions.
type openaiRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// openaiResponse is the response from POST /v1/chat/completions.
type openaiResponse struct {
	ID      string         `json:"id"`
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

type openaiClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewOpenAI creates a Provider backed by an OpenAI-compatible chat
// completions endpoint.
func NewOpenAI(baseURL, apiKey, model string, opts ...Option) Provider {
	return &openaiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    buildHTTPClient(defaultChatTimeout, opts),
	}
}

func (c *openaiClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	req := openaiRequest{
		Model:          c.model,
		Messages:       msgs,
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	respBody, err := postJSON(ctx, c.http, c.baseURL+"/v1/chat/completions", header, req)
	if err != nil {
		return "", providerErr(ProviderOpenAI, err)
	}

	var result openaiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", providerErr(ProviderOpenAI, eris.Wrap(err, "llm: unmarshal chat completion response"))
	}
	if len(result.Choices) == 0 {
		return "", providerErr(ProviderOpenAI, eris.New("llm: chat completion response has no choices"))
	}

	return result.Choices[0].Message.Content, nil
}
