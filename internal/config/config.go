// Package config loads the jsonguard command configuration from YAML.
package config

import (
	"time"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Provider ProviderConfig `yaml:"provider"`
	Request  RequestConfig  `yaml:"request"`
	Guard    GuardConfig    `yaml:"guard"`
	Schema   SchemaConfig   `yaml:"schema"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ProviderConfig holds the completion provider connection settings. Empty
// values fall back to OPENAI_API_KEY and OPENAI_API_BASE_URL.
type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"` // per call, 0 = no timeout
}

// RequestConfig is the request sent on every attempt.
type RequestConfig struct {
	Prompt         string  `yaml:"prompt"`
	PromptFile     string  `yaml:"prompt_file"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	ResponseFormat string  `yaml:"response_format"` // "", text, json_object, json_schema
	// StrictSchema asks for strict structured output with json_schema. The
	// schema is then sent without defaults.
	StrictSchema bool `yaml:"strict_schema"`
}

// GuardConfig holds the retry policy.
type GuardConfig struct {
	Mode        string `yaml:"mode"` // strict, recover
	MaxAttempts int    `yaml:"max_attempts"`
	// ProviderBudget gives provider failures their own budget. 0 = shared.
	ProviderBudget int `yaml:"provider_budget"`
	// StopOnPermanentErrors ends a run on auth and bad request errors
	// instead of retrying them.
	StopOnPermanentErrors bool          `yaml:"stop_on_permanent_errors"`
	ProviderBackoff       BackoffConfig `yaml:"provider_backoff"`
	ContentBackoff        BackoffConfig `yaml:"content_backoff"`
}

// BackoffConfig describes an exponential backoff. A zero Base disables it.
type BackoffConfig struct {
	Base       time.Duration `yaml:"base"`
	Max        time.Duration `yaml:"max"`         // cap on total wait, 0 = none
	Jitter     time.Duration `yaml:"jitter"`      // 0 = none
	MaxRetries uint64        `yaml:"max_retries"` // 0 = bounded by attempts only
}

// SchemaConfig selects the record schema. An empty File uses the built-in
// example schema.
type SchemaConfig struct {
	File string `yaml:"file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`      // debug, info, warn, error; empty = from env
	Format     string `yaml:"format"`     // text, json
	Middleware string `yaml:"middleware"` // minimal, standard, verbose
}

// MetricsConfig holds metrics output settings.
type MetricsConfig struct {
	File   string `yaml:"file"` // Prometheus textfile, empty = disabled
	Prefix string `yaml:"prefix"`
	// Buckets for the attempts-per-run histogram, increasing. Empty keeps
	// the backend default.
	Buckets []float64 `yaml:"buckets"`
}
