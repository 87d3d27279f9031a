package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "Terminal client that keeps several chat accounts signed in",
		Long:          "chatctl signs in to a chat server with one or more accounts, keeps a realtime session per account and lets you switch the active account from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs to stderr")

	app, err := wireApp(commandStderr{cmd: rootCmd})
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if verbose {
			app.level.Set(slog.LevelDebug)
		}
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newSwitchCmd(app),
		newAccountCmd(app),
		newStatusCmd(app),
		newConnectCmd(app),
	)

	return rootCmd
}

// commandStderr resolves the command's stderr on every write, so loggers
// built before SetErr still follow it.
type commandStderr struct {
	cmd *cobra.Command
}

func (w commandStderr) Write(p []byte) (int, error) {
	return w.cmd.ErrOrStderr().Write(p)
}
