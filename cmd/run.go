package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/model"
	"github.com/verdant-group/esg-cli/internal/pipeline"
)

var runFromCorpus bool

var runCmd = &cobra.Command{
	Use:   "run <report.pdf>",
	Short: "Extract emissions metrics from a single report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
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

		doc := model.Document{SourcePath: args[0]}
		if runFromCorpus {
			doc = model.Document{CorpusPath: args[0]}
		}

		run, err := p.Process(ctx, doc)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		zap.L().Info("extraction complete",
			zap.String("run_id", run.ID),
			zap.String("doc", run.Doc),
			zap.Int("metrics", run.MetricCount),
			zap.Int("dropped", run.DroppedCount),
			zap.Int("attempts", run.Attempts),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runFromCorpus, "corpus", false, "treat the argument as a saved corpus artifact instead of a PDF")
	rootCmd.AddCommand(runCmd)
}
