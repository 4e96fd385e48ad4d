// Package clean normalizes raw PDF-extracted text before corpus assembly.
package clean

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRun  = regexp.MustCompile(`[ \t]+`)
	pageLabel = regexp.MustCompile(`(?i)^-?\s*page\s+\d+(\s+of\s+\d+)?\s*-?$|^\d+\s+of\s+\d+$`)
)

// bullet glyphs normalized to a plain dash.
const bullets = "•◦▪‣·"

// Clean normalizes one page of raw text: Unicode compatibility fold,
// whitespace collapse, bullet normalization, page-footer removal, and
// joining of lines broken mid-sentence by PDF layout.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	// NFKC folds ligatures and presentation forms PDF extraction
	// leaves behind (ﬁ, ﬀ, full-width digits).
	txt := norm.NFKC.String(raw)
	txt = strings.ReplaceAll(txt, "\r\n", "\n")

	var out []string
	blank := 0
	for _, line := range strings.Split(txt, "\n") {
		line = spaceRun.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)

		if line == "" {
			blank++
			if blank == 1 && len(out) > 0 {
				out = append(out, "")
			}
			continue
		}
		blank = 0

		if pageLabel.MatchString(line) {
			continue
		}
		line = normalizeBullet(line)

		// An isolated bullet belongs to the line that follows it.
		if len(out) > 0 && out[len(out)-1] == "-" {
			out[len(out)-1] = "- " + line
			continue
		}
		// Rejoin a sentence the layout split: previous line ends
		// without terminal punctuation and this one starts lowercase
		// or with a digit.
		if len(out) > 0 && joinsPrevious(out[len(out)-1], line) {
			out[len(out)-1] += " " + line
			continue
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Lines cleans raw text and returns its non-empty lines in order.
func Lines(raw string) []string {
	cleaned := Clean(raw)
	if cleaned == "" {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(cleaned, "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func normalizeBullet(line string) string {
	r := []rune(line)
	if len(r) == 0 || !strings.ContainsRune(bullets, r[0]) {
		return line
	}
	rest := strings.TrimLeft(string(r[1:]), " ")
	if rest == "" {
		return "-"
	}
	return "- " + rest
}

func joinsPrevious(prev, line string) bool {
	if prev == "" || strings.HasPrefix(prev, "- ") {
		return false
	}
	last := prev[len(prev)-1]
	switch last {
	case '.', '?', '!', ':':
		return false
	}
	first := rune(line[0])
	return (first >= 'a' && first <= 'z') || (first >= '0' && first <= '9')
}
