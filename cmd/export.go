package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/output"
)

var (
	exportOut   string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history and metrics to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, exportLimit)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		exports := make([]output.RunExport, 0, len(runs))
		for _, r := range runs {
			metrics, err := st.ListMetrics(ctx, r.ID)
			if err != nil {
				return eris.Wrapf(err, "export metrics for run %s", r.ID)
			}
			exports = append(exports, output.RunExport{Run: r, Metrics: metrics})
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.Output.Dir, "runs.xlsx")
		}
		if err := output.WriteXLSX(out, exports); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("path", out),
			zap.Int("runs", len(exports)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "workbook path (default <output.dir>/runs.xlsx)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max number of runs to export (0 = default cap)")
	rootCmd.AddCommand(exportCmd)
}
