// Package llm provides a uniform completion contract over the model backends
// used for metric extraction. A Provider receives the accumulated
// conversation as role/content messages and returns the backend's raw text
// answer; parsing and validating that text stays with the caller.
//
// Backend selection is a static configuration choice made once at
// construction, never inferred at runtime. Supported variants: ollama-generate
// (local generate endpoint), ollama-chat (local chat endpoint), openai (any
// OpenAI-compatible chat endpoint), and anthropic (official SDK).
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Provider names accepted by New.
const (
	ProviderOllamaGenerate = "ollama-generate"
	ProviderOllamaChat     = "ollama-chat"
	ProviderOpenAI         = "openai"
	ProviderAnthropic      = "anthropic"
)

// Wire-level conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Local generate calls can take minutes on CPU-bound models; chat-style APIs
// answer much faster.
const (
	defaultGenerateTimeout = 600 * time.Second
	defaultChatTimeout     = 120 * time.Second
)

// Message is a single role/content turn sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider performs one completion over an accumulated conversation and
// returns the backend's raw text. Implementations pin temperature to 0 and
// request JSON mode where the backend supports it, but callers must still
// validate the returned text.
type Provider interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
}

// Config selects and parameterizes a backend variant.
type Config struct {
	Provider        string
	BaseURL         string
	APIKey          string
	Model           string
	GenerateTimeout time.Duration // ollama-generate requests; defaults to 10 minutes
	ChatTimeout     time.Duration // chat-style requests; defaults to 2 minutes
}

// New builds the Provider named by cfg.Provider. An unknown provider name
// fails here, before any network call.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOllamaGenerate:
		return NewOllamaGenerate(cfg.BaseURL, cfg.Model,
			WithTimeout(orDefault(cfg.GenerateTimeout, defaultGenerateTimeout))), nil
	case ProviderOllamaChat:
		return NewOllamaChat(cfg.BaseURL, cfg.Model,
			WithTimeout(orDefault(cfg.ChatTimeout, defaultChatTimeout))), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model,
			WithTimeout(orDefault(cfg.ChatTimeout, defaultChatTimeout))), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.Model), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// ProviderError wraps a transport failure, non-success status, or malformed
// response shape from a model backend. The extraction loop never retries
// these; repair turns are reserved for parse and validation failures.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError returns true if the error (or any error in its chain) is a
// ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

func providerErr(provider string, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}

// Option configures an HTTP-backed provider.
type Option func(*httpOptions)

type httpOptions struct {
	timeout time.Duration
	client  *http.Client
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *httpOptions) {
		o.timeout = d
	}
}

// WithHTTPClient overrides the default http.Client. The client is used as-is,
// including its own timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *httpOptions) {
		o.client = hc
	}
}

func buildHTTPClient(defaultTimeout time.Duration, opts []Option) *http.Client {
	o := httpOptions{timeout: defaultTimeout}
	for _, apply := range opts {
		apply(&o)
	}
	if o.client != nil {
		return o.client
	}
	return &http.Client{
		Timeout: o.timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
