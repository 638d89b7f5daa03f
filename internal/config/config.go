package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/table"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`
	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// http
	AllowedOrigins       []string `toml:"allowed_origins"`
	MaxUploadBytes       int64    `toml:"max_upload_bytes"`
	ResponseCacheBytes   int      `toml:"response_cache_bytes"`
	ResponseCacheTTLSecs int      `toml:"response_cache_ttl_secs"`
	// coach
	LLMModel     string   `toml:"llm_model"`
	LLMBaseURL   string   `toml:"llm_base_url"`
	LLMTimeout   Duration `toml:"llm_timeout"`
	LLMMaxTokens int      `toml:"llm_max_tokens"`
	// analysis
	Policy   analysis.Policy     `toml:"policy"`
	Keywords map[string][]string `toml:"keywords"`
}

// Duration decodes TOML strings such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the section of the TOML file at path matching env and fills
// unset values with defaults.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is Load over an in-memory TOML document.
func Parse(env, doc string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(doc, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env [%s] missing", env)
	}
	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{Environment: "development"}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9100
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "9101"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 32 << 20
	}
	if c.ResponseCacheBytes == 0 {
		c.ResponseCacheBytes = 16 << 20
	}
	if c.ResponseCacheTTLSecs == 0 {
		c.ResponseCacheTTLSecs = 3600
	}
	if c.LLMModel == "" {
		c.LLMModel = "claude-sonnet-4-5"
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = "https://api.anthropic.com"
	}
	if c.LLMTimeout.Duration == 0 {
		c.LLMTimeout.Duration = 2 * time.Minute
	}
	if c.LLMMaxTokens == 0 {
		c.LLMMaxTokens = 4096
	}
	c.Policy = c.Policy.Merge(analysis.DefaultPolicy())
}

// ColumnKeywords returns the default column keywords with the configured
// overrides applied.
func (c *Config) ColumnKeywords() table.Keywords {
	return table.DefaultKeywords().With(c.Keywords)
}
