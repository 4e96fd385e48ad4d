// Package output writes extraction results to disk: per-document JSON and
// CSV files keyed by the document stem, the batch summary CSV, and the
// export XLSX workbook.
package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/verdant-group/esg-cli/internal/model"
)

// Document is the per-document JSON artifact.
type Document struct {
	Doc     string         `json:"doc"`
	Metrics []model.Metric `json:"metrics"`
}

// metricRow flattens one metric for CSV output. Optional fields render
// empty, not zero.
type metricRow struct {
	Doc        string   `csv:"doc"`
	Name       string   `csv:"name"`
	Value      float64  `csv:"value"`
	Unit       string   `csv:"unit"`
	Year       int      `csv:"year"`
	Page       int      `csv:"page"`
	Snippet    string   `csv:"snippet"`
	Confidence *float64 `csv:"confidence"`
}

// RunExport pairs a stored run with its metrics for the export workbook.
type RunExport struct {
	Run     *model.Run
	Metrics []model.Metric
}

// WriteJSON writes the payload as <dir>/<stem>.json and returns the path.
func WriteJSON(dir, stem string, payload model.ExtractionPayload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "output: create directory")
	}

	doc := Document{Doc: stem, Metrics: payload.Metrics}
	if doc.Metrics == nil {
		doc.Metrics = []model.Metric{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eris.Wrapf(err, "output: marshal %s", stem)
	}

	path := filepath.Join(dir, stem+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", eris.Wrapf(err, "output: write %s", path)
	}
	return path, nil
}

// WriteCSV writes the payload as flattened rows at <dir>/<stem>.csv and
// returns the path. A payload with no metrics produces a header-only file.
func WriteCSV(dir, stem string, payload model.ExtractionPayload) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "output: create directory")
	}

	rows := make([]metricRow, len(payload.Metrics))
	for i, m := range payload.Metrics {
		rows[i] = metricRow{
			Doc:        stem,
			Name:       m.Name,
			Value:      m.Value,
			Unit:       m.Unit,
			Year:       m.Year,
			Page:       m.Page,
			Snippet:    m.Snippet,
			Confidence: m.Confidence,
		}
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return "", eris.Wrapf(err, "output: marshal %s rows", stem)
	}

	path := filepath.Join(dir, stem+".csv")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "output: write %s", path)
	}
	return path, nil
}

// WriteSummary writes the batch summary CSV at path.
func WriteSummary(path string, rows []model.SummaryRow) error {
	if rows == nil {
		rows = []model.SummaryRow{}
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "output: marshal summary")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "output: create directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "output: write %s", path)
	}
	return nil
}

var metricsHeader = []string{"doc", "name", "value", "unit", "year", "page", "snippet", "confidence"}

var summaryHeader = []string{"run_id", "doc", "provider", "model", "status", "metrics", "dropped", "attempts", "started_at", "duration_ms", "error"}

// WriteXLSX writes the export workbook at path: a Metrics sheet with every
// run's metrics flattened, and a Summary sheet with one row per run.
func WriteXLSX(path string, exports []RunExport) error {
	f := xlsx.NewFile()

	metrics, err := f.AddSheet("Metrics")
	if err != nil {
		return eris.Wrap(err, "output: add metrics sheet")
	}
	addStringRow(metrics, metricsHeader)
	for _, ex := range exports {
		for _, m := range ex.Metrics {
			row := metrics.AddRow()
			row.AddCell().SetString(ex.Run.Doc)
			row.AddCell().SetString(m.Name)
			row.AddCell().SetFloat(m.Value)
			row.AddCell().SetString(m.Unit)
			row.AddCell().SetInt(m.Year)
			row.AddCell().SetInt(m.Page)
			row.AddCell().SetString(m.Snippet)
			if m.Confidence != nil {
				row.AddCell().SetFloat(*m.Confidence)
			} else {
				row.AddCell().SetString("")
			}
		}
	}

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "output: add summary sheet")
	}
	addStringRow(summary, summaryHeader)
	for _, ex := range exports {
		r := ex.Run
		row := summary.AddRow()
		row.AddCell().SetString(r.ID)
		row.AddCell().SetString(r.Doc)
		row.AddCell().SetString(r.Provider)
		row.AddCell().SetString(r.Model)
		row.AddCell().SetString(string(r.Status))
		row.AddCell().SetInt(r.MetricCount)
		row.AddCell().SetInt(r.DroppedCount)
		row.AddCell().SetInt(r.Attempts)
		row.AddCell().SetString(r.StartedAt.UTC().Format(time.RFC3339))
		row.AddCell().SetInt64(r.Duration().Milliseconds())
		row.AddCell().SetString(r.Error)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "output: create directory")
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "output: save %s", path)
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
