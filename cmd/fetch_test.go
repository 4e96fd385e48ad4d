package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestExt(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/report.pdf", ".pdf"},
		{"https://example.com/bundle.ZIP", ".zip"},
		{"https://example.com/download?id=7", ".pdf"},
		{"ftp://reports.example.com/acme.pdf", ".pdf"},
		{"://bad", ".pdf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, destExt(tc.url), tc.url)
	}
}

func TestFetchEntriesURLs(t *testing.T) {
	entries, err := fetchEntries([]string{"https://a.example/x.pdf", "ftp://b.example/y.pdf"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://a.example/x.pdf", entries[0].URL)
	assert.Empty(t, entries[0].Stem, "stems for bare URLs are derived at fetch time")
}

func TestFetchEntriesMissingManifest(t *testing.T) {
	_, err := fetchEntries([]string{filepath.Join(t.TempDir(), "manifest.xlsx")})
	require.Error(t, err)
}
