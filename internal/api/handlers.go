package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/store"
)

type submitRequest struct {
	Path       string `json:"path"`
	CorpusPath string `json:"corpus_path"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" && req.CorpusPath == "" {
		jsonError(w, "path or corpus_path is required", http.StatusBadRequest)
		return
	}

	// Reject missing files at submit time; the worker would only find out
	// after the caller is gone.
	src := req.Path
	if req.CorpusPath != "" {
		src = req.CorpusPath
	}
	if _, err := os.Stat(src); err != nil {
		jsonError(w, "document not found: "+src, http.StatusBadRequest)
		return
	}

	run, doc := s.pl.NewRun(model.Document{SourcePath: req.Path, CorpusPath: req.CorpusPath})
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		zap.L().Error("api: create run", zap.Error(err))
		jsonError(w, "failed to create run", http.StatusInternalServerError)
		return
	}

	select {
	case s.queue <- queued{run: run, doc: doc}:
	default:
		now := time.Now().UTC()
		run.Status = model.RunStatusFailed
		run.Error = "queue full"
		run.FinishedAt = &now
		if err := s.store.UpdateRun(r.Context(), run); err != nil {
			zap.L().Warn("api: failed to mark run failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
		jsonError(w, "queue is full", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"doc":    run.Doc,
		"status": string(run.Status),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		jsonError(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "run not found", http.StatusNotFound)
			return
		}
		zap.L().Error("api: get run", zap.Error(err))
		jsonError(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := s.store.GetRun(r.Context(), runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "run not found", http.StatusNotFound)
			return
		}
		zap.L().Error("api: get run", zap.Error(err))
		jsonError(w, "failed to load run", http.StatusInternalServerError)
		return
	}

	metrics, err := s.store.ListMetrics(r.Context(), runID)
	if err != nil {
		zap.L().Error("api: list metrics", zap.Error(err))
		jsonError(w, "failed to list metrics", http.StatusInternalServerError)
		return
	}
	if metrics == nil {
		metrics = []model.Metric{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "metrics": metrics})
}

// handleStats reports run health over a lookback window, default 24 hours.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "hours must be a positive integer", http.StatusBadRequest)
			return
		}
		hours = n
	}

	snap, err := s.collector.Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("api: collect stats", zap.Error(err))
		jsonError(w, "failed to collect stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
