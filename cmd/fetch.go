package main

import (
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verdant-group/esg-cli/internal/fetcher"
)

var fetchForce bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <manifest.xlsx | url ...>",
	Short: "Download report PDFs from a manifest or URLs",
	Long:  "Downloads reports over HTTP or FTP into the fetch directory, keyed by stem. ZIP bundles are unpacked into their PDF members. Already-fetched stems are skipped unless --force is set.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		entries, err := fetchEntries(args)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			zap.L().Info("nothing to fetch")
			return nil
		}

		if err := os.MkdirAll(cfg.Fetch.Dir, 0o755); err != nil {
			return eris.Wrapf(err, "fetch: create dir %s", cfg.Fetch.Dir)
		}

		client := fetcher.NewClient(fetcher.Options{
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			RatePerSec: cfg.Fetch.RatePerSec,
		})

		var fetched, skipped, failed int
		for _, e := range entries {
			if ctx.Err() != nil {
				break
			}

			stem := e.Stem
			if stem == "" {
				stem = fetcher.StemFromURL(e.URL)
			}
			if stem == "" {
				failed++
				zap.L().Error("cannot derive a file name", zap.String("url", e.URL))
				continue
			}

			dest := filepath.Join(cfg.Fetch.Dir, stem+destExt(e.URL))
			pdfDest := filepath.Join(cfg.Fetch.Dir, stem+".pdf")
			if !fetchForce {
				if _, err := os.Stat(pdfDest); err == nil {
					skipped++
					zap.L().Info("already fetched, skipping", zap.String("stem", stem))
					continue
				}
			}

			n, err := client.Fetch(ctx, e.URL, dest)
			if err != nil {
				failed++
				zap.L().Error("fetch failed", zap.String("url", e.URL), zap.Error(err))
				continue
			}
			fetched++
			zap.L().Info("fetched report",
				zap.String("stem", stem),
				zap.String("dest", dest),
				zap.Int64("bytes", n),
			)

			if strings.EqualFold(filepath.Ext(dest), ".zip") {
				names, err := fetcher.ExtractPDFs(dest, cfg.Fetch.Dir)
				if err != nil {
					failed++
					zap.L().Error("unpack failed", zap.String("archive", dest), zap.Error(err))
					continue
				}
				zap.L().Info("unpacked archive",
					zap.String("archive", dest),
					zap.Int("pdfs", len(names)),
				)
			}
		}

		zap.L().Info("fetch complete",
			zap.Int("fetched", fetched),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed),
		)

		if fetched == 0 && failed > 0 {
			return eris.New("fetch: all downloads failed")
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "re-download reports that already exist")
	rootCmd.AddCommand(fetchCmd)
}

// fetchEntries expands the arguments: one .xlsx path becomes the manifest's
// rows, anything else is taken as a URL list.
func fetchEntries(args []string) ([]fetcher.ManifestEntry, error) {
	if len(args) == 1 && strings.EqualFold(filepath.Ext(args[0]), ".xlsx") {
		return fetcher.ReadManifest(args[0])
	}

	entries := make([]fetcher.ManifestEntry, 0, len(args))
	for _, raw := range args {
		entries = append(entries, fetcher.ManifestEntry{URL: raw})
	}
	return entries, nil
}

// destExt picks the download file extension from the URL path, defaulting
// to .pdf when the path has none worth keeping.
func destExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".pdf"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == ".zip" {
		return ".zip"
	}
	return ".pdf"
}
