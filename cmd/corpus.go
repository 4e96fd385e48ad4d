package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/corpus"
	"github.com/verdant-group/esg-cli/internal/ocr"
	"github.com/verdant-group/esg-cli/internal/pdf"
)

var corpusOut string

var corpusCmd = &cobra.Command{
	Use:   "corpus <report.pdf>",
	Short: "Extract a PDF into a reusable corpus artifact",
	Long:  "Parses the report once and saves the cleaned page corpus as JSON, so later runs can skip PDF parsing with run --corpus.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("corpus"); err != nil {
			return err
		}

		fallback, err := ocr.NewExtractor(cfg.PDF)
		if err != nil {
			return err
		}
		pages, err := pdf.NewReader(fallback).Read(ctx, args[0])
		if err != nil {
			return err
		}

		out := corpusOut
		if out == "" {
			out = filepath.Join(cfg.Output.Dir, pages.Doc+".corpus.json")
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrapf(err, "corpus: create dir for %s", out)
		}
		if err := corpus.Save(pages, out); err != nil {
			return err
		}

		zap.L().Info("corpus saved",
			zap.String("doc", pages.Doc),
			zap.String("path", out),
			zap.Int("pages", len(pages.Pages)),
			zap.Int("lines", pages.LineCount()),
		)
		return nil
	},
}

func init() {
	corpusCmd.Flags().StringVar(&corpusOut, "out", "", "artifact path (default <output.dir>/<stem>.corpus.json)")
	rootCmd.AddCommand(corpusCmd)
}
