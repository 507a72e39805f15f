// Package config provides configuration loading for adanalyst.
//
// A Config is built once at startup by Load and then passed by value or
// pointer into constructors. Nothing mutates it after validation.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete adanalyst configuration.
type Config struct {
	LLM        LLMConfig        `koanf:"llm" yaml:"llm"`
	Embeddings EmbeddingsConfig `koanf:"embeddings" yaml:"embeddings"`
	Validation ValidationConfig `koanf:"validation" yaml:"validation"`
	Paths      PathsConfig      `koanf:"paths" yaml:"paths"`
	Thresholds ThresholdsConfig `koanf:"thresholds" yaml:"thresholds"`
	Store      StoreConfig      `koanf:"store" yaml:"store"`
	Metrics    MetricsConfig    `koanf:"metrics" yaml:"metrics"`
	Logging    LoggingConfig    `koanf:"logging" yaml:"logging"`
}

// LLMConfig configures the completion service and the model cascade.
type LLMConfig struct {
	// Transport is "http" (direct OpenAI-compatible client) or "langchaingo".
	Transport string `koanf:"transport" yaml:"transport"`
	// BaseURL is the API root; "/chat/completions" is appended by the HTTP transport.
	BaseURL string `koanf:"base_url" yaml:"base_url"`
	APIKey  Secret `koanf:"api_key" yaml:"api_key"`
	// Models is the preference order for the cascade. First accepted wins.
	Models      []string `koanf:"models" yaml:"models"`
	Timeout     Duration `koanf:"timeout" yaml:"timeout"`
	MaxTokens   int      `koanf:"max_tokens" yaml:"max_tokens"`
	Temperature float64  `koanf:"temperature" yaml:"temperature"`
	// RateLimit is requests per second across all models. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	Referer   string  `koanf:"referer" yaml:"referer"`
	Title     string  `koanf:"title" yaml:"title"`
}

// EmbeddingsConfig selects the provider used for response validation.
type EmbeddingsConfig struct {
	// Provider is "fastembed", "tei" or "openai".
	Provider string `koanf:"provider" yaml:"provider"`
	Model    string `koanf:"model" yaml:"model"`
	BaseURL  string `koanf:"base_url" yaml:"base_url"`
	APIKey   Secret `koanf:"api_key" yaml:"api_key"`
	CacheDir string `koanf:"cache_dir" yaml:"cache_dir"`
}

// ValidationConfig tunes the response validator.
type ValidationConfig struct {
	MinLength           int      `koanf:"min_length" yaml:"min_length"`
	FallbackMinLength   int      `koanf:"fallback_min_length" yaml:"fallback_min_length"`
	SimilarityThreshold float64  `koanf:"similarity_threshold" yaml:"similarity_threshold"`
	Denylist            []string `koanf:"denylist" yaml:"denylist"`
}

// PathsConfig locates the dataset and the output directories.
type PathsConfig struct {
	Data    string `koanf:"data" yaml:"data"`
	Reports string `koanf:"reports" yaml:"reports"`
	Logs    string `koanf:"logs" yaml:"logs"`
}

// ThresholdsConfig holds the analysis thresholds.
type ThresholdsConfig struct {
	LowCTR       float64 `koanf:"low_ctr" yaml:"low_ctr"`
	MaxCreatives int     `koanf:"max_creatives" yaml:"max_creatives"`
}

// StoreConfig configures the run history database. An empty path disables it.
type StoreConfig struct {
	SQLitePath string `koanf:"sqlite_path" yaml:"sqlite_path"`
}

// MetricsConfig controls the per-run Prometheus textfile.
type MetricsConfig struct {
	Enabled  bool   `koanf:"enabled" yaml:"enabled"`
	Filename string `koanf:"filename" yaml:"filename"`
}

// LoggingConfig is the subset of logger settings exposed in the config file.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// Transport names.
const (
	TransportHTTP       = "http"
	TransportLangchain  = "langchaingo"
	DefaultBaseURL      = "https://openrouter.ai/api/v1"
	DefaultEmbedModel   = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultLLMTimeout   = 40 * time.Second
	defaultMaxTokens    = 2000
	defaultTemperature  = 0.3
	defaultLowCTR       = 0.01
	defaultMaxCreatives = 5
)

// DefaultModels is the cascade order used when none is configured.
var DefaultModels = []string{
	"alibaba/tongyi-deepresearch-30b-a3b:free",
	"nvidia/nemotron-nano-12b-v2-vl:free",
	"kwaipilot/kat-coder-pro:free",
	"tngtech/deepseek-r1t2-chimera:free",
	"deepseek/deepseek-r1:free",
	"deepseek/deepseek-chat-v3-0324:free",
	"mistralai/mistral-small-3.2-24b-instruct:free",
	"google/gemini-2.0-flash-exp:free",
	"meta-llama/llama-3.3-70b-instruct:free",
	"nousresearch/hermes-3-llama-3.1-405b:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"mistralai/mistral-7b-instruct:free",
	"x-ai/grok-4.1-fast:free",
	"meituan/longcat-flash-chat:free",
}

// DefaultDenylist is the set of refusal phrases that always reject a response.
var DefaultDenylist = []string{
	"i cannot",
	"not available",
	"unable",
	"sorry",
	"limit exceed",
	"i don't know",
	"no information",
	"consult local",
}

// Default returns the configuration used when no file or env overrides exist.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Transport:   TransportHTTP,
			BaseURL:     DefaultBaseURL,
			Models:      append([]string(nil), DefaultModels...),
			Timeout:     Duration(DefaultLLMTimeout),
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
			Referer:     "http://localhost",
			Title:       "adanalyst",
		},
		Embeddings: EmbeddingsConfig{
			Provider: "fastembed",
			Model:    DefaultEmbedModel,
			CacheDir: "local_cache",
		},
		Validation: ValidationConfig{
			MinLength:           10,
			FallbackMinLength:   30,
			SimilarityThreshold: 0.25,
			Denylist:            append([]string(nil), DefaultDenylist...),
		},
		Paths: PathsConfig{
			Data:    "data/synthetic_fb_ads_undergarments.csv",
			Reports: "reports",
			Logs:    "logs",
		},
		Thresholds: ThresholdsConfig{
			LowCTR:       defaultLowCTR,
			MaxCreatives: defaultMaxCreatives,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Filename: "metrics.prom",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Transport {
	case TransportHTTP, TransportLangchain:
	default:
		errs = append(errs, fmt.Errorf("llm.transport must be %q or %q, got %q", TransportHTTP, TransportLangchain, c.LLM.Transport))
	}
	if c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm.base_url is required"))
	}
	if len(c.LLM.Models) == 0 {
		errs = append(errs, errors.New("llm.models must list at least one model"))
	}
	for i, m := range c.LLM.Models {
		if m == "" {
			errs = append(errs, fmt.Errorf("llm.models[%d] is empty", i))
		}
	}
	if c.LLM.Timeout.Duration() <= 0 {
		errs = append(errs, errors.New("llm.timeout must be > 0"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens must be > 0"))
	}
	if c.LLM.RateLimit < 0 {
		errs = append(errs, errors.New("llm.rate_limit must be >= 0"))
	}

	switch c.Embeddings.Provider {
	case "fastembed", "tei", "openai":
	default:
		errs = append(errs, fmt.Errorf("embeddings.provider must be fastembed, tei or openai, got %q", c.Embeddings.Provider))
	}
	if c.Embeddings.Provider != "fastembed" && c.Embeddings.BaseURL == "" {
		errs = append(errs, fmt.Errorf("embeddings.base_url is required for provider %q", c.Embeddings.Provider))
	}

	if c.Validation.MinLength < 0 || c.Validation.FallbackMinLength < 0 {
		errs = append(errs, errors.New("validation lengths must be >= 0"))
	}
	if c.Validation.SimilarityThreshold < -1 || c.Validation.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("validation.similarity_threshold must be within [-1, 1], got %v", c.Validation.SimilarityThreshold))
	}

	if c.Paths.Data == "" || c.Paths.Reports == "" || c.Paths.Logs == "" {
		errs = append(errs, errors.New("paths.data, paths.reports and paths.logs are required"))
	}
	if c.Thresholds.LowCTR < 0 {
		errs = append(errs, errors.New("thresholds.low_ctr must be >= 0"))
	}
	if c.Thresholds.MaxCreatives <= 0 {
		errs = append(errs, errors.New("thresholds.max_creatives must be > 0"))
	}
	if c.Metrics.Enabled && c.Metrics.Filename == "" {
		errs = append(errs, errors.New("metrics.filename is required when metrics are enabled"))
	}

	return errors.Join(errs...)
}
