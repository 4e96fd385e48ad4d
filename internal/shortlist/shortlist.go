// Package shortlist reduces a page corpus to the bounded snippet list
// handed to the model. Local models fall over on full report text, so
// only keyword- and number-bearing lines survive.
package shortlist

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/verdant-group/esg-cli/internal/model"
)

var (
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	numberUnitRe = regexp.MustCompile(`(?i)\d[\d,.]*\s?(t|kt|mt)co2e\b`)
)

// Lister scans corpora for candidate snippets under a fixed rule set.
type Lister struct {
	rules Rules
}

// New returns a Lister for the given rules.
func New(rules Rules) *Lister {
	if len(rules.Keywords) == 0 {
		rules = DefaultRules()
	}
	kws := make([]string, len(rules.Keywords))
	for i, k := range rules.Keywords {
		if !rules.CaseSensitive {
			k = strings.ToLower(k)
		}
		kws[i] = k
	}
	rules.Keywords = kws
	return &Lister{rules: rules}
}

// Shortlist returns up to limit page-tagged snippets in scan order:
// pages as given, each page's lines before its table rows. The scan
// stops as soon as the cap is reached, so earlier pages win under
// truncation. Duplicates are dropped, first occurrence kept.
func (l *Lister) Shortlist(c model.PageCorpus, limit int) []string {
	if limit <= 0 {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(s string) bool {
		if _, ok := seen[s]; ok {
			return true
		}
		seen[s] = struct{}{}
		out = append(out, s)
		return len(out) < limit
	}

	for _, page := range c.Pages {
		for i, ln := range page.Lines {
			if !l.hit(ln) {
				continue
			}
			snip := fmt.Sprintf("[p%d] %s", page.Page, window(page.Lines, i, l.rules.Window))
			if !add(snip) {
				return out
			}
		}
		for _, table := range page.Tables {
			for _, row := range table {
				joined := normalize(strings.Join(row, " | "))
				if joined == "" || !l.hit(joined) {
					continue
				}
				if !add(fmt.Sprintf("[p%d] %s", page.Page, joined)) {
					return out
				}
			}
		}
	}
	return out
}

// hit reports whether a line carries extractable signal: a keyword plus
// at least one digit, a four-digit year, or a number glued to an
// emission unit.
func (l *Lister) hit(ln string) bool {
	if hasDigit(ln) {
		hay := ln
		if !l.rules.CaseSensitive {
			hay = strings.ToLower(ln)
		}
		for _, k := range l.rules.Keywords {
			if strings.Contains(hay, k) {
				return true
			}
		}
	}
	return yearRe.MatchString(ln) || numberUnitRe.MatchString(ln)
}

// window joins the hit line with its neighbors to keep numeric context
// that layout extraction split across lines.
func window(lines []string, i, w int) string {
	lo := max(i-w, 0)
	hi := min(i+w, len(lines)-1)
	parts := make([]string, 0, hi-lo+1)
	for _, ln := range lines[lo : hi+1] {
		if n := normalize(ln); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " / ")
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
