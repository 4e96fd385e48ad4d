// Package pipeline runs one document end to end: read the PDF (or load a
// saved page corpus), run the extraction loop, and persist the results.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/config"
	"github.com/verdant-group/esg-cli/internal/corpus"
	"github.com/verdant-group/esg-cli/internal/extract"
	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/ocr"
	"github.com/verdant-group/esg-cli/internal/output"
	"github.com/verdant-group/esg-cli/internal/pdf"
	"github.com/verdant-group/esg-cli/internal/runlog"
	"github.com/verdant-group/esg-cli/internal/shortlist"
	"github.com/verdant-group/esg-cli/internal/store"
	"github.com/verdant-group/esg-cli/pkg/llm"
)

// Pipeline wires the reader, extractor, store and run log together and
// processes documents one at a time.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	extractor *extract.Extractor
	reader    *pdf.Reader
	runLog    *runlog.Logger
}

// New creates a Pipeline from pre-built dependencies.
func New(cfg *config.Config, st store.Store, ex *extract.Extractor, rd *pdf.Reader, rl *runlog.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		extractor: ex,
		reader:    rd,
		runLog:    rl,
	}
}

// NewFromConfig builds the provider, shortlist rules, reader and run log
// from configuration and returns a ready Pipeline.
func NewFromConfig(cfg *config.Config, st store.Store) (*Pipeline, error) {
	provider, err := llm.New(llm.Config{
		Provider:        cfg.Extract.Provider,
		BaseURL:         cfg.Extract.APIBase,
		APIKey:          cfg.Extract.APIKey,
		Model:           cfg.Extract.Model,
		GenerateTimeout: time.Duration(cfg.Extract.GenerateTimeoutSecs) * time.Second,
		ChatTimeout:     time.Duration(cfg.Extract.ChatTimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	rules := shortlist.DefaultRules()
	if cfg.Extract.RulesFile != "" {
		rules, err = shortlist.LoadRules(cfg.Extract.RulesFile)
		if err != nil {
			return nil, err
		}
	}

	fallback, err := ocr.NewExtractor(cfg.PDF)
	if err != nil {
		return nil, err
	}

	ex := extract.New(provider, shortlist.New(rules), cfg.Extract)
	return New(cfg, st, ex, pdf.NewReader(fallback), runlog.New(cfg.Output.RunLog)), nil
}

// NewRun builds the run row for doc without persisting it, normalizing the
// document stem as a side effect. The HTTP API creates the row with status
// queued so the run ID can be returned at submit time.
func (p *Pipeline) NewRun(doc model.Document) (*model.Run, model.Document) {
	if doc.Stem == "" {
		if doc.CorpusPath != "" {
			doc.Stem = strings.TrimSuffix(model.StemFromPath(doc.CorpusPath), ".corpus")
		} else {
			doc.Stem = model.StemFromPath(doc.SourcePath)
		}
	}

	run := &model.Run{
		Doc:        doc.Stem,
		SourcePath: doc.SourcePath,
		Provider:   p.cfg.Extract.Provider,
		Model:      p.cfg.Extract.Model,
		Status:     model.RunStatusQueued,
	}
	if doc.CorpusPath != "" {
		run.SourcePath = doc.CorpusPath
	}
	return run, doc
}

// Process runs one document through the read, extract and persist phases.
// The returned Run reflects the final state even when err is non-nil, so
// batch callers can record a degraded summary row and move on to the next
// document.
func (p *Pipeline) Process(ctx context.Context, doc model.Document) (*model.Run, error) {
	run, doc := p.NewRun(doc)
	run.Status = model.RunStatusRunning
	if err := p.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	return p.execute(ctx, run, doc)
}

// ProcessRun executes a run that was already persisted with status queued.
func (p *Pipeline) ProcessRun(ctx context.Context, run *model.Run, doc model.Document) (*model.Run, error) {
	_, doc = p.NewRun(doc)
	run.Status = model.RunStatusRunning
	if err := p.store.UpdateRun(ctx, run); err != nil {
		zap.L().Warn("pipeline: failed to mark run running",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
	return p.execute(ctx, run, doc)
}

func (p *Pipeline) execute(ctx context.Context, run *model.Run, doc model.Document) (*model.Run, error) {
	log := zap.L().With(zap.String("doc", doc.Stem))
	log.Info("pipeline: processing document", zap.String("source", run.SourcePath))

	p.runLog.Start(run)

	trackPhase := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		duration := time.Since(start).Milliseconds()
		if err != nil {
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(err),
			)
			return err
		}
		log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
		)
		return nil
	}

	fail := func(err error) (*model.Run, error) {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		p.finish(ctx, run)
		p.runLog.Error(run, err)
		return run, err
	}

	var pages model.PageCorpus
	if err := trackPhase("read", func() error {
		var readErr error
		if doc.CorpusPath != "" {
			pages, readErr = corpus.Load(doc.CorpusPath)
		} else {
			pages, readErr = p.reader.Read(ctx, doc.SourcePath)
		}
		return readErr
	}); err != nil {
		return fail(err)
	}
	pages.Doc = doc.Stem

	var result extract.Result
	if err := trackPhase("extract", func() error {
		var exErr error
		result, exErr = p.extractor.Extract(ctx, pages)
		return exErr
	}); err != nil {
		return fail(err)
	}
	if result.NoSignal {
		log.Warn("pipeline: no emissions signal shortlisted, model not called")
	}

	run.MetricCount = len(result.Payload.Metrics)
	run.DroppedCount = result.Payload.Dropped
	run.Attempts = result.Attempts

	if err := trackPhase("persist", func() error {
		jsonPath, werr := output.WriteJSON(p.cfg.Output.Dir, run.Doc, result.Payload)
		if werr != nil {
			return werr
		}
		csvPath, werr := output.WriteCSV(p.cfg.Output.Dir, run.Doc, result.Payload)
		if werr != nil {
			return werr
		}
		log.Debug("pipeline: outputs written",
			zap.String("json", jsonPath),
			zap.String("csv", csvPath),
		)
		return p.store.SaveMetrics(ctx, run.ID, result.Payload.Metrics)
	}); err != nil {
		return fail(err)
	}

	run.Status = model.RunStatusComplete
	p.finish(ctx, run)
	p.runLog.Done(run)

	log.Info("pipeline: document complete",
		zap.String("run_id", run.ID),
		zap.Int("metrics", run.MetricCount),
		zap.Int("dropped", run.DroppedCount),
		zap.Int("attempts", run.Attempts),
	)
	return run, nil
}

// finish stamps the end time and writes the final run state. Store failures
// are logged, not returned, so a flaky database cannot mask the document's
// real outcome.
func (p *Pipeline) finish(ctx context.Context, run *model.Run) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := p.store.UpdateRun(ctx, run); err != nil {
		zap.L().Warn("pipeline: failed to update run",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

// Summarize converts a finished run into one batch summary row.
func Summarize(run *model.Run) model.SummaryRow {
	return model.SummaryRow{
		Doc:        run.Doc,
		Status:     string(run.Status),
		Metrics:    run.MetricCount,
		Dropped:    run.DroppedCount,
		Attempts:   run.Attempts,
		DurationMS: run.Duration().Milliseconds(),
		Error:      run.Error,
	}
}
