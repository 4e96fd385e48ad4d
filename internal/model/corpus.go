package model

import "strings"

// Page holds the cleaned text of one PDF page. Tables are captured
// alongside the free text as table -> row -> cell; both are scanned for
// signal.
type Page struct {
	Page   int          `json:"page"`
	Lines  []string     `json:"lines,omitempty"`
	Tables [][][]string `json:"tables,omitempty"`
}

// PageCorpus is the per-document unit of work: every page of one report,
// ordered by page number. Immutable once loaded.
type PageCorpus struct {
	Doc   string `json:"doc"`
	Pages []Page `json:"pages"`
}

// LineCount returns the total number of text lines across all pages.
func (c PageCorpus) LineCount() int {
	n := 0
	for _, p := range c.Pages {
		n += len(p.Lines)
	}
	return n
}

// Empty reports whether the corpus has no text or table content at all.
func (c PageCorpus) Empty() bool {
	for _, p := range c.Pages {
		if len(p.Lines) > 0 || len(p.Tables) > 0 {
			return false
		}
	}
	return true
}

// Document identifies one input report. Stem keys every output artifact
// for the document.
type Document struct {
	ID          string `json:"id"`
	Stem        string `json:"stem"`
	SourcePath  string `json:"source_path"`
	CorpusPath  string `json:"corpus_path,omitempty"`
	FetchedFrom string `json:"fetched_from,omitempty"`
	Pages       int    `json:"pages"`
}

// StemFromPath derives a document stem from a file path: base name with
// the extension removed.
func StemFromPath(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
