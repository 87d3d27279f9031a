package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/bnema/chatctl/internal/adapters/notify/console"
	"github.com/bnema/chatctl/internal/adapters/watch"
)

func newConnectCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Keep every stored account connected and open an interactive console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			live, err := app.startController(ctx, mfaPrompter(cmd, ""), console.New(cmd.ErrOrStderr(), app.logger))
			if err != nil {
				return err
			}
			defer live.Close()

			waitForConfig(ctx, live.ctrl, configWaitTimeout)
			if err := live.ctrl.Restore(ctx); err != nil {
				return err
			}

			session := &consoleSession{
				ctrl:    live.ctrl,
				profile: live.profile,
				render:  app.statusRenderer,
				reader:  app.newLineReader(),
				out:     cmd.OutOrStdout(),
			}
			defer session.reader.Close()

			watchCtx, stopWatch := context.WithCancel(ctx)
			watchDone := make(chan struct{})
			go func() {
				defer close(watchDone)
				err := watch.File{
					Path:   app.accountsPath,
					Logger: app.logger,
					OnChange: func(ctx context.Context) {
						result, err := live.ctrl.Reconcile(ctx)
						if err != nil {
							app.logger.Warn("reconcile sessions failed", "error", err)
							return
						}
						if !result.Empty() {
							session.println(describeReconcile(result))
						}
					},
				}.Run(watchCtx, nil)
				if err != nil {
					app.logger.Warn("account file watch stopped", "path", app.accountsPath, "error", err)
				}
			}()
			defer func() {
				stopWatch()
				<-watchDone
			}()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d account(s) loaded. Type help for commands.\n", len(live.ctrl.Sessions()))
			return session.run(ctx)
		},
	}
}
