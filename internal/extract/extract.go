// Package extract drives the closed extraction loop for a single document:
// shortlist relevant snippets, prompt the model, validate the returned JSON,
// and issue bounded repair turns until the payload validates or the budget
// runs out. Exhausting the budget on validation errors degrades to a filtered
// payload rather than failing; exhausting it on unparseable output is fatal.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/config"
	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/prompt"
	"github.com/verdant-group/esg-cli/internal/shortlist"
	"github.com/verdant-group/esg-cli/internal/validate"
	"github.com/verdant-group/esg-cli/pkg/llm"
)

// Extractor runs the extraction loop. One document at a time; each run owns
// its own conversation, so a single Extractor is safe to reuse sequentially.
type Extractor struct {
	provider   llm.Provider
	lister     *shortlist.Lister
	limit      int
	maxRepairs int
}

// Result is the outcome of one extraction run.
type Result struct {
	Payload  model.ExtractionPayload
	Attempts int  // repair turns consumed across decode and validation failures
	NoSignal bool // nothing shortlisted; the model was never called
}

// New creates an Extractor. cfg.MaxRepairs bounds how many repair turns a
// document may consume in total, shared between decode and validation
// failures.
func New(provider llm.Provider, lister *shortlist.Lister, cfg config.ExtractConfig) *Extractor {
	return &Extractor{
		provider:   provider,
		lister:     lister,
		limit:      cfg.SnippetLimit,
		maxRepairs: cfg.MaxRepairs,
	}
}

// Extract maps a page corpus to an extraction payload. Provider failures and
// repair-budget exhaustion on unparseable output return an error; every other
// path terminates with a payload.
func (e *Extractor) Extract(ctx context.Context, corpus model.PageCorpus) (Result, error) {
	snippets := e.lister.Shortlist(corpus, e.limit)
	if len(snippets) == 0 {
		zap.L().Warn("no relevant snippets shortlisted",
			zap.String("doc", corpus.Doc),
		)
		return Result{
			Payload:  model.ExtractionPayload{Metrics: []model.Metric{}},
			NoSignal: true,
		}, nil
	}

	zap.L().Debug("shortlisted snippets",
		zap.String("doc", corpus.Doc),
		zap.Int("count", len(snippets)),
	)

	conv := model.NewConversation(prompt.System(), prompt.User(snippets))

	var res Result
	attempts := 0
	for {
		raw, err := e.provider.Complete(ctx, toWire(conv))
		if err != nil {
			return res, eris.Wrapf(err, "extract: model call for %s", corpus.Doc)
		}

		payload, cleaned, decodeErr := decode(raw)
		if decodeErr != nil {
			if attempts >= e.maxRepairs {
				return res, eris.Wrapf(decodeErr, "extract: %s: output still not valid JSON after %d repair turns", corpus.Doc, attempts)
			}
			attempts++
			res.Attempts = attempts
			zap.L().Debug("model output not valid JSON, repairing",
				zap.String("doc", corpus.Doc),
				zap.Int("attempt", attempts),
			)
			msg := "response was not valid JSON: " + decodeErr.Error()
			conv = conv.Append(model.RoleRepair, prompt.Repair([]string{msg}, cleaned))
			continue
		}

		errs := validate.Validate(payload)
		if len(errs) == 0 {
			res.Payload, _ = collect(payload)
			return res, nil
		}

		if attempts >= e.maxRepairs {
			filtered, dropped := collect(payload)
			res.Payload = filtered
			zap.L().Warn("repair budget exhausted, dropping invalid metrics",
				zap.String("doc", corpus.Doc),
				zap.Int("kept", len(filtered.Metrics)),
				zap.Ints("dropped", dropped),
			)
			return res, nil
		}

		attempts++
		res.Attempts = attempts
		zap.L().Debug("model output failed validation, repairing",
			zap.String("doc", corpus.Doc),
			zap.Int("attempt", attempts),
			zap.Int("errors", len(errs)),
		)
		conv = conv.Append(model.RoleRepair, prompt.Repair(errs, cleaned))
	}
}

// toWire maps conversation turns to provider messages. Repair turns travel
// with the user role.
func toWire(conv model.Conversation) []llm.Message {
	out := make([]llm.Message, len(conv))
	for i, m := range conv {
		out[i] = llm.Message{Role: m.Role.Wire(), Content: m.Content}
	}
	return out
}

// decode strips any markdown wrapping and parses the text as JSON. The
// cleaned text is returned either way so repair prompts can quote it.
func decode(text string) (any, string, error) {
	cleaned := cleanJSON(text)
	var payload any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, cleaned, err
	}
	return payload, cleaned, nil
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// collect converts the metrics that pass per-item checks and reports the
// indexes of the ones that did not.
func collect(raw any) (model.ExtractionPayload, []int) {
	items := validate.MetricsArray(raw)
	metrics := make([]model.Metric, 0, len(items))
	var dropped []int
	for i, item := range items {
		if len(validate.MetricErrors(item)) > 0 {
			dropped = append(dropped, i)
			continue
		}
		m, ok := validate.ToMetric(item)
		if !ok {
			dropped = append(dropped, i)
			continue
		}
		metrics = append(metrics, m)
	}
	return model.ExtractionPayload{Metrics: metrics, Dropped: len(dropped)}, dropped
}
