package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	PDF        PDFConfig        `yaml:"pdf" mapstructure:"pdf"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Serve      ServeConfig      `yaml:"serve" mapstructure:"serve"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ExtractConfig configures the model-backed extraction loop.
type ExtractConfig struct {
	Provider            string `yaml:"provider" mapstructure:"provider"`
	APIBase             string `yaml:"api_base" mapstructure:"api_base"`
	APIKey              string `yaml:"api_key" mapstructure:"api_key"`
	Model               string `yaml:"model" mapstructure:"model"`
	MaxRepairs          int    `yaml:"max_repairs" mapstructure:"max_repairs"`
	SnippetLimit        int    `yaml:"snippet_limit" mapstructure:"snippet_limit"`
	RulesFile           string `yaml:"rules_file" mapstructure:"rules_file"`
	GenerateTimeoutSecs int    `yaml:"generate_timeout_secs" mapstructure:"generate_timeout_secs"`
	ChatTimeoutSecs     int    `yaml:"chat_timeout_secs" mapstructure:"chat_timeout_secs"`
}

// PDFConfig configures PDF text extraction and its fallback chain. The
// library reader always runs first; OCRProvider selects what handles the
// files it cannot read. "local" shells out to pdftotext, "mistral" sends
// the file to the Mistral OCR API, "none" disables the fallback.
type PDFConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	OCRProvider   string `yaml:"ocr_provider" mapstructure:"ocr_provider"`
	MistralAPIKey string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
}

// OutputConfig configures where results land.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	RunLog string `yaml:"run_log" mapstructure:"run_log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServeConfig configures the HTTP API server.
type ServeConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	QueueSize int    `yaml:"queue_size" mapstructure:"queue_size"`
}

// FetchConfig configures report downloading.
type FetchConfig struct {
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MonitoringConfig configures the background health checker that serve
// mode runs. Alerts fire on run failure rate, on completed runs that
// yield no metrics, and on queue depth.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	EmptyRateThreshold   float64 `yaml:"empty_rate_threshold" mapstructure:"empty_rate_threshold"`
	QueueDepthThreshold  int     `yaml:"queue_depth_threshold" mapstructure:"queue_depth_threshold"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Optional keys get empty defaults so AutomaticEnv can
	// populate them through Unmarshal; viper only binds env for keys it
	// already knows.
	v.SetDefault("extract.provider", "ollama-generate")
	v.SetDefault("extract.api_base", "http://localhost:11434")
	v.SetDefault("extract.api_key", "")
	v.SetDefault("extract.model", "llama3.2")
	v.SetDefault("extract.max_repairs", 2)
	v.SetDefault("extract.snippet_limit", 40)
	v.SetDefault("extract.rules_file", "")
	v.SetDefault("extract.generate_timeout_secs", 600)
	v.SetDefault("extract.chat_timeout_secs", 120)
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("pdf.ocr_provider", "local")
	v.SetDefault("pdf.mistral_api_key", "")
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.run_log", "runs.ndjson")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "esg.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("serve.addr", ":8084")
	v.SetDefault("serve.queue_size", 16)
	v.SetDefault("fetch.dir", "reports")
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.empty_rate_threshold", 0.5)
	v.SetDefault("monitoring.queue_depth_threshold", 50)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required by the given command mode. Provider
// construction does its own unknown-provider check; this catches the rest
// before any work starts.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkExtract := func() {
		if c.Extract.MaxRepairs < 0 {
			problems = append(problems, "extract.max_repairs must be >= 0")
		}
		if c.Extract.SnippetLimit < 1 {
			problems = append(problems, "extract.snippet_limit must be >= 1")
		}
		switch c.Extract.Provider {
		case "openai", "anthropic":
			if c.Extract.APIKey == "" {
				problems = append(problems, "extract.api_key is required for provider "+c.Extract.Provider)
			}
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for driver postgres")
		}
	}

	checkPDF := func() {
		switch c.PDF.OCRProvider {
		case "", "local", "none":
		case "mistral":
			if c.PDF.MistralAPIKey == "" {
				problems = append(problems, "pdf.mistral_api_key is required for ocr_provider mistral")
			}
		default:
			problems = append(problems, "pdf.ocr_provider must be local, mistral, or none")
		}
	}

	switch mode {
	case "run", "batch", "corpus":
		checkExtract()
		checkPDF()
	case "serve":
		checkExtract()
		checkPDF()
		if c.Serve.Addr == "" {
			problems = append(problems, "serve.addr is required")
		}
		if c.Serve.QueueSize < 1 || c.Serve.QueueSize > 1024 {
			problems = append(problems, "serve.queue_size must be between 1 and 1024")
		}
		if c.Monitoring.Enabled {
			if c.Monitoring.CheckIntervalSecs < 1 {
				problems = append(problems, "monitoring.check_interval_secs must be >= 1")
			}
			if c.Monitoring.LookbackWindowHours < 1 {
				problems = append(problems, "monitoring.lookback_window_hours must be >= 1")
			}
			if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
				problems = append(problems, "monitoring.failure_rate_threshold must be between 0 and 1")
			}
			if c.Monitoring.EmptyRateThreshold < 0 || c.Monitoring.EmptyRateThreshold > 1 {
				problems = append(problems, "monitoring.empty_rate_threshold must be between 0 and 1")
			}
		}
	case "fetch":
		if c.Fetch.RatePerSec <= 0 {
			problems = append(problems, "fetch.rate_per_sec must be > 0")
		}
	case "export", "runs":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for driver postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
