package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/chatctl/internal/adapters/notify/console"
	statusadapter "github.com/bnema/chatctl/internal/adapters/render/status"
	"github.com/bnema/chatctl/internal/application"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		format  string
		long    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Connect every stored account and report its session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != formatText && format != formatYAML {
				return fmt.Errorf("unsupported format %q: expected %s or %s", format, formatText, formatYAML)
			}

			status, err := collectStatus(cmd, app, timeout)
			if err != nil {
				return err
			}

			return writeStatusOutput(cmd, app, status, format, long)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatText, "Output format: text or yaml")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show user ids and server features")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for sessions to connect")

	return cmd
}

func collectStatus(cmd *cobra.Command, app *app, timeout time.Duration) (application.Status, error) {
	ctx := cmd.Context()

	live, err := app.startController(ctx, mfaPrompter(cmd, ""), console.New(cmd.ErrOrStderr(), app.logger))
	if err != nil {
		return application.Status{}, err
	}
	defer live.Close()

	waitForConfig(ctx, live.ctrl, configWaitTimeout)
	if err := live.ctrl.Restore(ctx); err != nil {
		return application.Status{}, err
	}

	if err := runWithSpinner(ctx, cmd.ErrOrStderr(), "Connecting accounts...", func(ctx context.Context) error {
		return waitSettled(ctx, live.ctrl, timeout)
	}); err != nil {
		app.logger.Warn("status collected before every session settled", "error", err)
	}

	return live.ctrl.Status(), nil
}

func writeStatusOutput(cmd *cobra.Command, app *app, status application.Status, format string, long bool) error {
	if format == formatYAML {
		rendered, err := statusadapter.RenderYAML(status)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
		return err
	}

	rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{Verbose: long})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
