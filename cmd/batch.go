package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/fetcher"
	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/output"
	"github.com/verdant-group/esg-cli/internal/pipeline"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch <dir | manifest.xlsx>",
	Short: "Extract metrics from every report in a directory or manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		docs, err := collectDocuments(args[0])
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			zap.L().Info("no documents to process")
			return nil
		}
		if batchLimit > 0 && len(docs) > batchLimit {
			docs = docs[:batchLimit]
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := pipeline.NewFromConfig(cfg, st)
		if err != nil {
			return err
		}

		zap.L().Info("processing batch", zap.Int("documents", len(docs)))

		rows := make([]model.SummaryRow, 0, len(docs))
		var succeeded, failed int
		interrupted := false
		for _, doc := range docs {
			if ctx.Err() != nil {
				interrupted = true
				break
			}

			run, perr := p.Process(ctx, doc)
			if perr != nil {
				failed++
				zap.L().Error("document failed",
					zap.String("doc", doc.Stem),
					zap.Error(perr),
				)
				if run == nil {
					// Not even a run row; degrade into a bare summary row.
					stem := doc.Stem
					if stem == "" {
						stem = model.StemFromPath(doc.SourcePath)
					}
					rows = append(rows, model.SummaryRow{
						Doc:    stem,
						Status: string(model.RunStatusFailed),
						Error:  perr.Error(),
					})
					continue
				}
				rows = append(rows, pipeline.Summarize(run))
				continue // one bad report must not sink the batch
			}
			succeeded++
			rows = append(rows, pipeline.Summarize(run))
		}

		summaryPath := filepath.Join(cfg.Output.Dir, "summary.csv")
		if err := output.WriteSummary(summaryPath, rows); err != nil {
			return eris.Wrap(err, "write summary")
		}

		zap.L().Info("batch complete",
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed),
			zap.String("summary", summaryPath),
		)

		if interrupted {
			return eris.New("batch interrupted")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of documents to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}

// collectDocuments turns the batch argument into a document list: every PDF
// in a directory, or the stems of an XLSX manifest resolved against the
// fetch directory.
func collectDocuments(arg string) ([]model.Document, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: stat %s", arg)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: read dir %s", arg)
		}
		var docs []model.Document
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			docs = append(docs, model.Document{SourcePath: filepath.Join(arg, e.Name())})
		}
		sort.Slice(docs, func(i, j int) bool { return docs[i].SourcePath < docs[j].SourcePath })
		return docs, nil
	}

	if strings.EqualFold(filepath.Ext(arg), ".xlsx") {
		entries, err := fetcher.ReadManifest(arg)
		if err != nil {
			return nil, err
		}
		var docs []model.Document
		for _, e := range entries {
			docs = append(docs, model.Document{
				Stem:       e.Stem,
				SourcePath: filepath.Join(cfg.Fetch.Dir, e.Stem+".pdf"),
			})
		}
		return docs, nil
	}

	return nil, eris.Errorf("batch: %s is neither a directory nor an .xlsx manifest", arg)
}
