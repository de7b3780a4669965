// Package cli implements the jsonguard command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/leofalp/jsonguard/core/schema"
	"github.com/leofalp/jsonguard/internal/config"
	"github.com/leofalp/jsonguard/internal/jsonschema"
	obsslog "github.com/leofalp/jsonguard/providers/observability/slog"
)

// ExitError carries a process exit code out of a command. Commands return it
// when they finished normally but the result should fail the process, such
// as an exhausted run.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// app holds the state shared by all commands of one invocation.
type app struct {
	cfgPath     string
	isDebug     bool
	format      string
	metricsFile string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg    *config.AppConfig
	logger *slog.Logger
}

// NewRootCommand builds the command tree writing to the given streams.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "jsonguard",
		Short: "Recover trusted JSON records from an unreliable completion provider",
		Long: `jsonguard asks a completion provider for a JSON object, parses the reply
strictly, validates or recovers it against a schema and retries until a
trusted record is produced or the attempt budget is spent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVar(&a.isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.format, "format", formatText, "outcome format: text or json")

	rootCmd.AddCommand(newRunCommand(a), newCheckCommand(a), newSchemaCommand(a))
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	return 0
}

func (a *app) setup() error {
	_ = godotenv.Load()

	if a.format != formatText && a.format != formatJSON {
		return fmt.Errorf("unknown format %q", a.format)
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	slogLevel := obsslog.GetLogLevelFromEnv()
	if cfg.Logging.Level != "" {
		slogLevel, _ = obsslog.ParseLogLevel(cfg.Logging.Level)
	}
	if a.isDebug {
		slogLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == formatJSON {
		handler = slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: slogLevel})
	} else {
		handler = tint.NewHandler(a.stderr, &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	}
	a.logger = slog.New(handler)

	return nil
}

// responseSchema returns the JSON Schema document sent to the provider.
func (a *app) responseSchema(s *schema.Schema) *jsonschema.Schema {
	if a.cfg.Request.StrictSchema {
		return s.StrictJSONSchema()
	}
	return s.JSONSchema()
}

// loadSchema returns the configured schema, or the example schema when no
// file is configured.
func (a *app) loadSchema() (*schema.Schema, error) {
	if a.cfg.Schema.File == "" {
		return schema.Example(), nil
	}
	return schema.Load(a.cfg.Schema.File)
}
