package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/verdant-group/esg-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteMigration = `
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
	started_at    DATETIME NOT NULL,
	finished_at   DATETIME
);

CREATE TABLE IF NOT EXISTS metrics (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	pos        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	value      REAL NOT NULL,
	unit       TEXT NOT NULL,
	year       INTEGER NOT NULL,
	page       INTEGER NOT NULL,
	snippet    TEXT NOT NULL DEFAULT '',
	confidence REAL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_doc ON runs(doc);
CREATE INDEX IF NOT EXISTS idx_metrics_run_id ON metrics(run_id);
`

// NewSQLite opens (creating if needed) a SQLite database at path, configures
// WAL mode, and applies the migration.
func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunStatusQueued
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, doc, source_path, provider, model, status, metric_count, dropped_count, attempts, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Doc, run.SourcePath, run.Provider, run.Model, string(run.Status),
		run.MetricCount, run.DroppedCount, run.Attempts, run.Error, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, metric_count = ?, dropped_count = ?, attempts = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), run.MetricCount, run.DroppedCount, run.Attempts, run.Error, run.FinishedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, doc, source_path, provider, model, status, metric_count, dropped_count, attempts, error, started_at, finished_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc, source_path, provider, model, status, metric_count, dropped_count, attempts, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveMetrics(ctx context.Context, runID string, metrics []model.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for i, m := range metrics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO metrics (id, run_id, pos, name, value, unit, year, page, snippet, confidence)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), runID, i, m.Name, m.Value, m.Unit, m.Year, m.Page, m.Snippet, m.Confidence,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert metric %d for run %s", i, runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit metrics")
}

func (s *SQLiteStore) ListMetrics(ctx context.Context, runID string) ([]model.Metric, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value, unit, year, page, snippet, confidence FROM metrics WHERE run_id = ? ORDER BY pos`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list metrics for run %s", runID)
	}
	defer rows.Close()

	var metrics []model.Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metric")
		}
		metrics = append(metrics, m)
	}
	return metrics, eris.Wrap(rows.Err(), "sqlite: list metrics iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Doc, &r.SourcePath, &r.Provider, &r.Model, &status,
		&r.MetricCount, &r.DroppedCount, &r.Attempts, &r.Error, &r.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
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

func scanMetric(row scannable) (model.Metric, error) {
	var m model.Metric
	var snippet sql.NullString
	var confidence sql.NullFloat64

	if err := row.Scan(&m.Name, &m.Value, &m.Unit, &m.Year, &m.Page, &snippet, &confidence); err != nil {
		return model.Metric{}, err
	}

	m.Snippet = snippet.String
	if confidence.Valid {
		c := confidence.Float64
		m.Confidence = &c
	}
	return m, nil
}
