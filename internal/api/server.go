// Package api exposes the extraction pipeline over HTTP. Submissions are
// queued and drained by one worker goroutine, so server mode keeps the
// one-document-at-a-time model of the CLI.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/config"
	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/monitoring"
	"github.com/verdant-group/esg-cli/internal/pipeline"
	"github.com/verdant-group/esg-cli/internal/store"
)

// queued pairs a persisted run with the document it will process.
type queued struct {
	run *model.Run
	doc model.Document
}

// Server is the HTTP front end for the extraction pipeline.
type Server struct {
	router    chi.Router
	store     store.Store
	pl        *pipeline.Pipeline
	collector *monitoring.Collector
	queue     chan queued
}

// NewServer creates the server and its routes. cfg.QueueSize bounds how many
// documents may wait; submissions beyond that are rejected with 503.
func NewServer(cfg config.ServeConfig, st store.Store, pl *pipeline.Pipeline) *Server {
	size := cfg.QueueSize
	if size <= 0 {
		size = 16
	}
	s := &Server{
		store:     st,
		pl:        pl,
		collector: monitoring.NewCollector(st),
		queue:     make(chan queued, size),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleSubmit)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/metrics", s.handleListMetrics)
		r.Get("/stats", s.handleStats)
	})

	s.router = r
}

// Start drains the queue until ctx is cancelled, processing one document at
// a time. Failures are already recorded on the run row, so the loop logs
// and keeps going.
func (s *Server) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-s.queue:
			if _, err := s.pl.ProcessRun(ctx, item.run, item.doc); err != nil {
				zap.L().Error("api: document failed",
					zap.String("run_id", item.run.ID),
					zap.String("doc", item.run.Doc),
					zap.Error(err),
				)
			}
		}
	}
}
