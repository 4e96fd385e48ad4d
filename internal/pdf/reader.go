// Package pdf turns report PDFs into page corpora. The Go library
// reader runs first; files it cannot parse go to the ocr fallback when
// one is configured.
package pdf

import (
	"context"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/clean"
	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/ocr"
)

// Reader extracts per-page text and table rows from PDF files.
type Reader struct {
	fallback ocr.Extractor
}

// NewReader returns a Reader. A nil fallback makes library failures
// terminal.
func NewReader(fallback ocr.Extractor) *Reader {
	return &Reader{fallback: fallback}
}

// Read extracts a PageCorpus from the PDF at path. Page numbers are
// 1-based and continuous.
func (r *Reader) Read(ctx context.Context, path string) (model.PageCorpus, error) {
	corpus := model.PageCorpus{Doc: model.StemFromPath(path)}

	pages, err := readLib(path)
	if err != nil {
		if r.fallback == nil {
			return corpus, eris.Wrapf(err, "pdf: extract %s", path)
		}
		zap.L().Debug("pdf library extraction failed, trying fallback",
			zap.String("path", path),
			zap.Error(err))
		text, ferr := r.fallback.ExtractText(ctx, path)
		if ferr != nil {
			return corpus, eris.Wrapf(ferr, "pdf: extract %s", path)
		}
		pages, err = splitPages(text)
		if err != nil {
			return corpus, eris.Wrapf(err, "pdf: extract %s", path)
		}
	}

	corpus.Pages = pages
	return corpus, nil
}

// readLib extracts pages with ledongthuc/pdf. The library panics on
// some malformed files, so recover converts that into an error and
// lets the fallback take over.
func readLib(path string) (pages []model.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, eris.Errorf("pdf: library panic: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		p := reader.Page(i)
		page := model.Page{Page: i}
		if !p.V.IsNull() {
			if text, terr := p.GetPlainText(nil); terr == nil {
				page.Lines = clean.Lines(text)
			}
			page.Tables = pageTables(p)
		}
		pages = append(pages, page)
	}

	if emptyPages(pages) {
		return nil, eris.New("pdf: no extractable text")
	}
	return pages, nil
}

// splitPages cuts fallback output on form feeds and cleans each page's
// lines.
func splitPages(text string) ([]model.Page, error) {
	var pages []model.Page
	for i, chunk := range strings.Split(text, "\f") {
		pages = append(pages, model.Page{Page: i + 1, Lines: clean.Lines(chunk)})
	}
	// pdftotext ends output with a form feed, leaving one empty page.
	if n := len(pages); n > 0 && len(pages[n-1].Lines) == 0 {
		pages = pages[:n-1]
	}

	if emptyPages(pages) {
		return nil, eris.New("pdf: no extractable text")
	}
	return pages, nil
}

// pageTables groups a page's positioned text into table-ish rows: runs
// of two or more consecutive multi-cell rows. Anything subtler than
// that is left to the text lines.
func pageTables(p pdflib.Page) [][][]string {
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil
	}

	var tables [][][]string
	var current [][]string
	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}

	for _, row := range rows {
		cells := rowCells(row.Content)
		if len(cells) >= 2 {
			current = append(current, cells)
			continue
		}
		flush()
	}
	flush()
	return tables
}

// rowCells splits one positioned row into cells on large horizontal
// gaps, inserting word spaces on small ones.
func rowCells(items []pdflib.Text) []string {
	var cells []string
	var cell strings.Builder
	lastEnd := 0.0

	for i, t := range items {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		gap := t.X - lastEnd
		switch {
		case i > 0 && gap > 2.5*size:
			cells = appendCell(cells, cell.String())
			cell.Reset()
		case i > 0 && gap > 0.25*size && cell.Len() > 0:
			cell.WriteString(" ")
		}
		cell.WriteString(t.S)
		lastEnd = t.X + t.W
	}
	return appendCell(cells, cell.String())
}

func appendCell(cells []string, s string) []string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return cells
	}
	return append(cells, s)
}

func emptyPages(pages []model.Page) bool {
	for _, p := range pages {
		if len(p.Lines) > 0 || len(p.Tables) > 0 {
			return false
		}
	}
	return true
}
