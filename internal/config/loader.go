package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/jsonguard/core/guard"
	obsslog "github.com/leofalp/jsonguard/providers/observability/slog"
)

const defaultPrompt = `Return a JSON object with:
- language (string)
- purpose (string)
- benefits (list of strings)

Return ONLY JSON.`

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	return &AppConfig{
		Provider: ProviderConfig{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Request: RequestConfig{
			Prompt:       defaultPrompt,
			Temperature:  0.7,
			MaxTokens:    200,
			StrictSchema: true,
		},
		Guard: GuardConfig{
			Mode:        "recover",
			MaxAttempts: 3,
		},
		Logging: LoggingConfig{
			Format:     "text",
			Middleware: "standard",
		},
		Metrics: MetricsConfig{
			Prefix: "jsonguard",
		},
	}
}

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded first. Keys missing from the file keep their Default
// values. An empty path returns Default.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Request.PromptFile != "" {
		prompt, err := os.ReadFile(cfg.Request.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file: %w", err)
		}
		cfg.Request.Prompt = string(prompt)
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error

	if _, err := guard.ParseMode(c.Guard.Mode); err != nil {
		errs = append(errs, fmt.Errorf("guard.mode: %q is not strict or recover", c.Guard.Mode))
	}
	if c.Guard.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("guard.max_attempts: must be at least 1, got %d", c.Guard.MaxAttempts))
	}
	if c.Guard.ProviderBudget < 0 {
		errs = append(errs, fmt.Errorf("guard.provider_budget: must not be negative, got %d", c.Guard.ProviderBudget))
	}
	if strings.TrimSpace(c.Request.Prompt) == "" {
		errs = append(errs, errors.New("request.prompt: must not be empty"))
	}
	if c.Request.Temperature < 0 || c.Request.Temperature > 2 {
		errs = append(errs, fmt.Errorf("request.temperature: must be within [0, 2], got %g", c.Request.Temperature))
	}
	if c.Request.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("request.max_tokens: must not be negative, got %d", c.Request.MaxTokens))
	}
	switch c.Request.ResponseFormat {
	case "", "text", "json_object", "json_schema":
	default:
		errs = append(errs, fmt.Errorf("request.response_format: unknown value %q", c.Request.ResponseFormat))
	}
	if c.Provider.Timeout < 0 {
		errs = append(errs, fmt.Errorf("provider.timeout: must not be negative, got %s", c.Provider.Timeout))
	}
	if c.Logging.Level != "" {
		if _, err := obsslog.ParseLogLevel(c.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown value %q", c.Logging.Format))
	}
	switch c.Logging.Middleware {
	case "minimal", "standard", "verbose":
	default:
		errs = append(errs, fmt.Errorf("logging.middleware: unknown value %q", c.Logging.Middleware))
	}
	for i := 1; i < len(c.Metrics.Buckets); i++ {
		if c.Metrics.Buckets[i] <= c.Metrics.Buckets[i-1] {
			errs = append(errs, fmt.Errorf("metrics.buckets: must be increasing, got %v", c.Metrics.Buckets))
			break
		}
	}
	errs = append(errs, c.Guard.ProviderBackoff.validate("guard.provider_backoff")...)
	errs = append(errs, c.Guard.ContentBackoff.validate("guard.content_backoff")...)

	return errors.Join(errs...)
}

func (b BackoffConfig) validate(prefix string) []error {
	var errs []error
	if b.Base < 0 {
		errs = append(errs, fmt.Errorf("%s.base: must not be negative", prefix))
	}
	if b.Max < 0 {
		errs = append(errs, fmt.Errorf("%s.max: must not be negative", prefix))
	}
	if b.Jitter < 0 {
		errs = append(errs, fmt.Errorf("%s.jitter: must not be negative", prefix))
	}
	return errs
}

// Factory builds the backoff described by b, or nil when Base is zero.
func (b BackoffConfig) Factory() guard.BackoffFactory {
	if b.Base <= 0 {
		return nil
	}

	return func() retry.Backoff {
		backoff := retry.NewExponential(b.Base)
		if b.Max > 0 {
			backoff = retry.WithMaxDuration(b.Max, backoff)
		}
		if b.Jitter > 0 {
			backoff = retry.WithJitter(b.Jitter, backoff)
		}
		if b.MaxRetries > 0 {
			backoff = retry.WithMaxRetries(b.MaxRetries, backoff)
		}
		return backoff
	}
}
