package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/verdant-group/esg-cli/internal/db"
	"github.com/verdant-group/esg-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	doc           TEXT NOT NULL,
	source_path   TEXT NOT NULL DEFAULT '',
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'queued',
	metric_count  INTEGER NOT NULL DEFAULT 0,
	dropped_count INTEGER NOT NULL DEFAULT 0,
	attempts      INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS metrics (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	pos        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	value      DOUBLE PRECISION NOT NULL,
	unit       TEXT NOT NULL,
	year       INTEGER NOT NULL,
	page       INTEGER NOT NULL,
	snippet    TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_doc ON runs(doc);
CREATE INDEX IF NOT EXISTS idx_metrics_run_id ON metrics(run_id);
`

// metricColumns is the COPY column order for SaveMetrics.
var metricColumns = []string{"id", "run_id", "pos", "name", "value", "unit", "year", "page", "snippet", "confidence"}

// NewPostgres creates a PostgresStore with a connection pool and applies the
// migration.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s := &PostgresStore{pool: pool, closeFn: pool.Close}
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: migrate")
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunStatusQueued
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, doc, source_path, provider, model, status, metric_count, dropped_count, attempts, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.Doc, run.SourcePath, run.Provider, run.Model, string(run.Status),
		run.MetricCount, run.DroppedCount, run.Attempts, run.Error, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *model.Run) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, metric_count = $2, dropped_count = $3, attempts = $4, error = $5, finished_at = $6 WHERE id = $7`,
		string(run.Status), run.MetricCount, run.DroppedCount, run.Attempts, run.Error, run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, doc, source_path, provider, model, status, metric_count, dropped_count, attempts, error, started_at, finished_at
		 FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, doc, source_path, provider, model, status, metric_count, dropped_count, attempts, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveMetrics(ctx context.Context, runID string, metrics []model.Metric) error {
	rows := make([][]any, len(metrics))
	for i, m := range metrics {
		rows[i] = []any{uuid.New().String(), runID, i, m.Name, m.Value, m.Unit, m.Year, m.Page, m.Snippet, m.Confidence}
	}

	_, err := db.CopyFrom(ctx, s.pool, "metrics", metricColumns, rows)
	return eris.Wrapf(err, "postgres: save metrics for run %s", runID)
}

func (s *PostgresStore) ListMetrics(ctx context.Context, runID string) ([]model.Metric, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, value, unit, year, page, snippet, confidence FROM metrics WHERE run_id = $1 ORDER BY pos`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list metrics for run %s", runID)
	}
	defer rows.Close()

	var metrics []model.Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan metric")
		}
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "postgres: list metrics iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Doc, &r.SourcePath, &r.Provider, &r.Model, &status,
		&r.MetricCount, &r.DroppedCount, &r.Attempts, &r.Error, &r.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	r.Status = model.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
