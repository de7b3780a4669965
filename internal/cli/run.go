package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/leofalp/jsonguard/core/guard"
	"github.com/leofalp/jsonguard/core/schema"
	"github.com/leofalp/jsonguard/providers/completion"
	"github.com/leofalp/jsonguard/providers/completion/middleware"
	"github.com/leofalp/jsonguard/providers/completion/openai"
	"github.com/leofalp/jsonguard/providers/observability"
	"github.com/leofalp/jsonguard/providers/observability/promobs"
	obsslog "github.com/leofalp/jsonguard/providers/observability/slog"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ask the provider for a record and retry until it is trusted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}
	cmd.Flags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	return cmd
}

func (a *app) run(ctx context.Context) error {
	s, err := a.loadSchema()
	if err != nil {
		return err
	}

	metrics, flush := a.metrics()
	opts := append(a.guardOptions(), guard.WithMetrics(metrics))

	mode, _ := guard.ParseMode(a.cfg.Guard.Mode)
	ctrl, err := guard.New(mode, s, a.cfg.Guard.MaxAttempts, opts...)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "requesting record",
		slog.String("model", a.cfg.Provider.Model),
		slog.String("mode", ctrl.Mode().String()),
		slog.Int("max_attempts", ctrl.MaxAttempts()),
	)

	complete := completion.Chain(a.provider(),
		middleware.NewLoggingMiddleware(a.logger, middlewareLevel(a.cfg.Logging.Middleware)),
		middleware.NewTimeoutMiddleware(a.cfg.Provider.Timeout),
	)

	out, runErr := ctrl.Run(ctx, completion.Bind(complete, a.request(s)))
	if err := flush(); err != nil {
		a.logger.Error("failed to write metrics", "error", err)
	}
	if out == nil {
		return runErr
	}

	if err := writeOutcome(a.stdout, out, a.format); err != nil {
		return err
	}
	if runErr != nil {
		return &ExitError{Code: 130, Err: runErr}
	}
	if !out.Succeeded() {
		return &ExitError{Code: 1, Err: out.Err()}
	}
	return nil
}

func (a *app) provider() *openai.Provider {
	p := openai.New()
	if a.cfg.Provider.APIKey != "" {
		p.WithAPIKey(a.cfg.Provider.APIKey)
	}
	if a.cfg.Provider.BaseURL != "" {
		p.WithBaseURL(a.cfg.Provider.BaseURL)
	}
	if a.cfg.Provider.Model != "" {
		p.WithModel(a.cfg.Provider.Model)
	}
	return p
}

func (a *app) request(s *schema.Schema) completion.Request {
	request := completion.Request{
		Prompt:      a.cfg.Request.Prompt,
		Temperature: a.cfg.Request.Temperature,
		MaxTokens:   a.cfg.Request.MaxTokens,
	}

	switch format := completion.ResponseFormatType(a.cfg.Request.ResponseFormat); format {
	case "":
	case completion.ResponseFormatJSONSchema:
		request.ResponseFormat = &completion.ResponseFormat{
			Type:   format,
			Schema: a.responseSchema(s),
			Strict: a.cfg.Request.StrictSchema,
		}
	default:
		request.ResponseFormat = &completion.ResponseFormat{Type: format}
	}
	return request
}

func (a *app) guardOptions() []guard.Option {
	g := a.cfg.Guard
	opts := []guard.Option{
		guard.WithLogger(a.logger),
		guard.WithProviderBudget(g.ProviderBudget),
		guard.WithProviderBackoff(g.ProviderBackoff.Factory()),
		guard.WithContentBackoff(g.ContentBackoff.Factory()),
	}
	if g.StopOnPermanentErrors {
		opts = append(opts, guard.WithProviderRetryable(completion.IsRetryable))
	}
	return opts
}

// metrics returns the metrics sink for a run and a function writing it out.
// Without a metrics file, observations go to the debug log.
func (a *app) metrics() (observability.Metrics, func() error) {
	if a.metricsFile == "" && a.cfg.Metrics.File == "" {
		return obsslog.New(a.logger), func() error { return nil }
	}

	path := a.metricsFile
	if path == "" {
		path = a.cfg.Metrics.File
	}

	registry := prometheus.NewRegistry()
	opts := []promobs.Option{promobs.WithPrefix(a.cfg.Metrics.Prefix)}
	if len(a.cfg.Metrics.Buckets) > 0 {
		opts = append(opts, promobs.WithBuckets(a.cfg.Metrics.Buckets))
	}
	metrics := promobs.New(registry, opts...)
	return metrics, func() error {
		if err := promobs.WriteTextfile(path, registry); err != nil {
			return err
		}
		a.logger.Debug("metrics written", "path", path)
		return nil
	}
}

func middlewareLevel(level string) middleware.LogLevel {
	switch level {
	case "minimal":
		return middleware.LogLevelMinimal
	case "verbose":
		return middleware.LogLevelVerbose
	default:
		return middleware.LogLevelStandard
	}
}
