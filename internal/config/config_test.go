package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ollama-generate", cfg.Extract.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Extract.APIBase)
	assert.Equal(t, "llama3.2", cfg.Extract.Model)
	assert.Equal(t, 2, cfg.Extract.MaxRepairs)
	assert.Equal(t, 40, cfg.Extract.SnippetLimit)
	assert.Equal(t, 600, cfg.Extract.GenerateTimeoutSecs)
	assert.Equal(t, 120, cfg.Extract.ChatTimeoutSecs)
	assert.Equal(t, "pdftotext", cfg.PDF.PdfToTextPath)
	assert.Equal(t, "local", cfg.PDF.OCRProvider)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "runs.ndjson", cfg.Output.RunLog)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "esg.db", cfg.Store.Path)
	assert.Equal(t, ":8084", cfg.Serve.Addr)
	assert.Equal(t, 16, cfg.Serve.QueueSize)
	assert.Equal(t, "reports", cfg.Fetch.Dir)
	assert.InDelta(t, 2.0, cfg.Fetch.RatePerSec, 0.001)
	assert.Equal(t, 120, cfg.Fetch.TimeoutSecs)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.5, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
extract:
  provider: openai
  api_base: https://api.example.com
  model: gpt-4o-mini
  snippet_limit: 25
store:
  driver: postgres
  database_url: postgres://localhost/esg
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Extract.Provider)
	assert.Equal(t, "https://api.example.com", cfg.Extract.APIBase)
	assert.Equal(t, "gpt-4o-mini", cfg.Extract.Model)
	assert.Equal(t, 25, cfg.Extract.SnippetLimit)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.Extract.MaxRepairs)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
extract:
  provider: ollama-chat
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ESG_EXTRACT_PROVIDER", "openai")
	t.Setenv("ESG_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "openai", cfg.Extract.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ESG_EXTRACT_API_KEY", "sk-test")
	t.Setenv("ESG_EXTRACT_MAX_REPAIRS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Extract.APIKey)
	assert.Equal(t, 3, cfg.Extract.MaxRepairs)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config mirroring the Load defaults for
// validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Extract.Provider = "ollama-generate"
	cfg.Extract.MaxRepairs = 2
	cfg.Extract.SnippetLimit = 40
	cfg.Store.Driver = "sqlite"
	cfg.Serve.Addr = ":8084"
	cfg.Serve.QueueSize = 16
	cfg.Fetch.RatePerSec = 2.0
	return cfg
}

func TestValidateRun_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_HostedProviderNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Extract.Provider = "openai"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "extract.api_key is required")

	cfg.Extract.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/esg"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Extract.MaxRepairs = -1
	cfg.Extract.SnippetLimit = 0

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "extract.max_repairs must be >= 0")
	assert.Contains(t, err.Error(), "extract.snippet_limit must be >= 1")
}

func TestValidateRun_OCRProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.PDF.OCRProvider = "tesseract"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pdf.ocr_provider must be local, mistral, or none")

	cfg.PDF.OCRProvider = "mistral"
	err = cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pdf.mistral_api_key is required")

	cfg.PDF.MistralAPIKey = "mk-test"
	assert.NoError(t, cfg.Validate("run"))

	cfg.PDF.OCRProvider = "none"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateServe_QueueBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Serve.QueueSize = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "serve.queue_size must be between 1 and 1024")

	cfg.Serve.QueueSize = 2048
	err = cfg.Validate("serve")
	assert.Error(t, err)

	cfg.Serve.QueueSize = 16
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_MonitoringBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.Enabled = true
	cfg.Monitoring.CheckIntervalSecs = 0
	cfg.Monitoring.LookbackWindowHours = 0
	cfg.Monitoring.FailureRateThreshold = 1.5

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.check_interval_secs must be >= 1")
	assert.Contains(t, err.Error(), "monitoring.lookback_window_hours must be >= 1")
	assert.Contains(t, err.Error(), "monitoring.failure_rate_threshold must be between 0 and 1")

	cfg.Monitoring.CheckIntervalSecs = 300
	cfg.Monitoring.LookbackWindowHours = 24
	cfg.Monitoring.FailureRateThreshold = 0.5
	assert.NoError(t, cfg.Validate("serve"))

	// Disabled monitoring skips the bounds checks entirely.
	cfg.Monitoring.Enabled = false
	cfg.Monitoring.CheckIntervalSecs = 0
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateFetch_Rate(t *testing.T) {
	cfg := validDefaults()
	cfg.Fetch.RatePerSec = 0

	err := cfg.Validate("fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.rate_per_sec must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
