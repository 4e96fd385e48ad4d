package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text with the pdftotext CLI. Its output already
// separates pages with form feeds.
type PdfToText struct {
	binPath string
}

// NewPdfToText returns a PdfToText running the given binary, defaulting
// to "pdftotext" on PATH.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout and returns its stdout. -layout
// keeps table columns visually aligned, which the shortlist patterns
// depend on.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", eris.Wrapf(err, "ocr: pdftotext %s: %s", pdfPath, msg)
		}
		return "", eris.Wrapf(err, "ocr: pdftotext %s", pdfPath)
	}

	return stdout.String(), nil
}
