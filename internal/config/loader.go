package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix namespaces environment overrides.
	EnvPrefix = "ADANALYST_"

	// APIKeyEnv is read when llm.api_key is not set anywhere else.
	APIKeyEnv = "OPENROUTER_API_KEY"

	// DefaultPath is used by the CLI when --config is not given.
	DefaultPath = "config/config.yaml"
)

// Load reads configuration from a YAML file, then overrides it with
// environment variables and fills unset values with defaults.
//
// Precedence (highest to lowest):
//  1. ADANALYST_* environment variables
//  2. the YAML file at path (skipped if it does not exist)
//  3. built-in defaults
//
// Environment keys split on the first underscore after the prefix:
//
//	ADANALYST_LLM_BASE_URL      -> llm.base_url
//	ADANALYST_THRESHOLDS_LOW_CTR -> thresholds.low_ctr
//	ADANALYST_LLM_MODELS=a,b    -> llm.models [a b]
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(k, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps ADANALYST_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// applyDefaults fills zero values from Default. Booleans are only defaulted
// when the key is absent, since false is a legitimate setting.
func applyDefaults(k *koanf.Koanf, cfg *Config) {
	def := Default()

	if cfg.LLM.Transport == "" {
		cfg.LLM.Transport = def.LLM.Transport
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if !cfg.LLM.APIKey.IsSet() {
		cfg.LLM.APIKey = Secret(os.Getenv(APIKeyEnv))
	}
	if len(cfg.LLM.Models) == 0 {
		cfg.LLM.Models = def.LLM.Models
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = def.LLM.Timeout
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if !k.Exists("llm.temperature") {
		cfg.LLM.Temperature = def.LLM.Temperature
	}
	if cfg.LLM.Referer == "" {
		cfg.LLM.Referer = def.LLM.Referer
	}
	if cfg.LLM.Title == "" {
		cfg.LLM.Title = def.LLM.Title
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = def.Embeddings.Provider
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = def.Embeddings.Model
	}
	if cfg.Embeddings.CacheDir == "" {
		cfg.Embeddings.CacheDir = def.Embeddings.CacheDir
	}

	if !k.Exists("validation.min_length") {
		cfg.Validation.MinLength = def.Validation.MinLength
	}
	if !k.Exists("validation.fallback_min_length") {
		cfg.Validation.FallbackMinLength = def.Validation.FallbackMinLength
	}
	if !k.Exists("validation.similarity_threshold") {
		cfg.Validation.SimilarityThreshold = def.Validation.SimilarityThreshold
	}
	if len(cfg.Validation.Denylist) == 0 {
		cfg.Validation.Denylist = def.Validation.Denylist
	}

	if cfg.Paths.Data == "" {
		cfg.Paths.Data = def.Paths.Data
	}
	if cfg.Paths.Reports == "" {
		cfg.Paths.Reports = def.Paths.Reports
	}
	if cfg.Paths.Logs == "" {
		cfg.Paths.Logs = def.Paths.Logs
	}

	if !k.Exists("thresholds.low_ctr") {
		cfg.Thresholds.LowCTR = def.Thresholds.LowCTR
	}
	if cfg.Thresholds.MaxCreatives == 0 {
		cfg.Thresholds.MaxCreatives = def.Thresholds.MaxCreatives
	}

	if !k.Exists("metrics.enabled") {
		cfg.Metrics.Enabled = def.Metrics.Enabled
	}
	if cfg.Metrics.Filename == "" {
		cfg.Metrics.Filename = def.Metrics.Filename
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}
