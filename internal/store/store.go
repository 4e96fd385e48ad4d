// Package store persists extraction runs and their metrics. Two backends
// share one contract: SQLite for single-machine use and Postgres for shared
// deployments, selected by configuration.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/verdant-group/esg-cli/internal/config"
	"github.com/verdant-group/esg-cli/internal/model"
)

// Store defines the persistence interface for extraction runs.
type Store interface {
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)

	SaveMetrics(ctx context.Context, runID string, metrics []model.Metric) error
	ListMetrics(ctx context.Context, runID string) ([]model.Metric, error)

	Close() error
}

// defaultListLimit caps ListRuns when the caller passes no limit.
const defaultListLimit = 100

// ErrNotFound is returned when a run ID matches nothing. Both backends wrap
// it, so callers can test with errors.Is.
var ErrNotFound = eris.New("run not found")

// Open builds the backend selected by cfg.Driver and applies its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(ctx, cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
