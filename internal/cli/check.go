package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/jsonguard/core/guard"
)

func newCheckCommand(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "check [file|-]",
		Short: "Run a saved provider reply through the pipeline once",
		Long: `check reads a provider reply from a file, or from stdin when the argument
is "-" or missing, and runs it through parsing and validation exactly once.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return a.check(cmd.Context(), path, mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "strict or recover (defaults to guard.mode from config)")
	return cmd
}

func (a *app) check(ctx context.Context, path, modeFlag string) error {
	text, err := a.readInput(path)
	if err != nil {
		return err
	}

	if modeFlag == "" {
		modeFlag = a.cfg.Guard.Mode
	}
	mode, err := checkModeFlag(modeFlag)
	if err != nil {
		return err
	}

	s, err := a.loadSchema()
	if err != nil {
		return err
	}

	invoke := func(context.Context) (string, error) {
		return text, nil
	}

	out, err := guard.Run(ctx, invoke, mode, s, 1, guard.WithLogger(a.logger))
	if err != nil {
		return err
	}

	if err := writeOutcome(a.stdout, out, a.format); err != nil {
		return err
	}
	if !out.Succeeded() {
		return &ExitError{Code: 1, Err: out.Err()}
	}
	return nil
}

func (a *app) readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read reply file: %w", err)
	}
	return string(data), nil
}

// checkModeFlag validates a --mode override.
func checkModeFlag(mode string) (guard.Mode, error) {
	m, err := guard.ParseMode(mode)
	if err != nil {
		return 0, fmt.Errorf("invalid --mode: %w", err)
	}
	return m, nil
}
