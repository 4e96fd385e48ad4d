// Package ocr recovers text from PDFs the library reader cannot parse.
// PdfToText shells out to the pdftotext CLI for files that still carry
// a text layer; MistralOCR sends scanned files to the Mistral OCR API.
// Both separate pages with form feeds so the caller keeps page numbers.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/verdant-group/esg-cli/internal/config"
)

// Extractor extracts the full text of a PDF, pages separated by form
// feed characters.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor builds the fallback named by cfg.OCRProvider. A nil
// Extractor with a nil error means the fallback is disabled: provider
// "none", or "local" with no pdftotext path configured.
func NewExtractor(cfg config.PDFConfig) (Extractor, error) {
	switch cfg.OCRProvider {
	case "none":
		return nil, nil
	case "local", "":
		if cfg.PdfToTextPath == "" {
			return nil, nil
		}
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralAPIKey == "" {
			return nil, eris.New("ocr: mistral provider requires pdf.mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralAPIKey, ""), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.OCRProvider)
	}
}
