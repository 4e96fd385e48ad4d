package fetcher

import (
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ManifestEntry is one row of a fetch manifest: where to download a report
// and the document stem its output files are keyed by.
type ManifestEntry struct {
	URL  string
	Stem string
}

// ReadManifest reads entries from the first sheet of an XLSX workbook. The
// first row is the header (url, stem); blank rows are skipped. A missing
// stem is derived from the URL's file name.
func ReadManifest(manifestPath string) ([]ManifestEntry, error) {
	f, err := xlsx.OpenFile(manifestPath)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open manifest")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("fetcher: manifest has no sheets")
	}

	var entries []ManifestEntry
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue
		}

		var rawURL, stem string
		if len(row.Cells) > 0 {
			rawURL = strings.TrimSpace(row.Cells[0].String())
		}
		if len(row.Cells) > 1 {
			stem = strings.TrimSpace(row.Cells[1].String())
		}
		if rawURL == "" {
			continue
		}
		if stem == "" {
			stem = StemFromURL(rawURL)
		}
		entries = append(entries, ManifestEntry{URL: rawURL, Stem: stem})
	}
	return entries, nil
}

// StemFromURL derives a document stem from the URL's final path segment,
// dropping the extension. Empty when the URL has no usable path.
func StemFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
