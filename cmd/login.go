package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/chatctl/internal/adapters/notify/console"
	"github.com/bnema/chatctl/internal/adapters/prompt/totp"
	"github.com/bnema/chatctl/internal/adapters/prompt/tui"
	"github.com/bnema/chatctl/internal/application"
	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

const (
	totpSecretEnv     = "CHATCTL_TOTP_SECRET"
	configWaitTimeout = 3 * time.Second
)

func newLoginCmd(app *app) *cobra.Command {
	var (
		email        string
		friendlyName string
		totpSecret   string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an account and make it active",
		Long:  "Sign in with email and password. The password is read from the terminal without echo, or from stdin when it is not a terminal. MFA challenges are answered interactively, or from --totp-secret.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if totpSecret == "" {
				totpSecret = os.Getenv(totpSecretEnv)
			}

			password, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password is empty")
			}

			return runLogin(cmd, app, application.LoginRequest{
				Email:        strings.TrimSpace(email),
				Password:     password,
				FriendlyName: friendlyName,
			}, totpSecret, timeout)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&friendlyName, "device-name", "", "Session name shown by the server (defaults to the OS)")
	cmd.Flags().StringVar(&totpSecret, "totp-secret", "", "Base32 TOTP secret used to answer MFA challenges (or "+totpSecretEnv+")")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "How long to wait for the session to come online")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runLogin(cmd *cobra.Command, app *app, req application.LoginRequest, totpSecret string, timeout time.Duration) error {
	ctx := cmd.Context()

	live, err := app.startController(ctx, mfaPrompter(cmd, totpSecret), console.New(cmd.ErrOrStderr(), app.logger))
	if err != nil {
		return err
	}
	defer live.Close()

	if !waitForConfig(ctx, live.ctrl, configWaitTimeout) {
		app.logger.Warn("server config not loaded, using fallback websocket url", "url", app.cfg.FallbackWebsocketURL())
	}

	credential, err := live.ctrl.Login(ctx, req)
	if errors.Is(err, domain.ErrMFACancelled) {
		return errors.New("login cancelled")
	}
	if err != nil {
		return err
	}

	label := fmt.Sprintf("Connecting %s...", credential.Name)
	if err := runWithSpinner(ctx, cmd.ErrOrStderr(), label, func(ctx context.Context) error {
		return waitSettled(ctx, live.ctrl, timeout)
	}); err != nil {
		return fmt.Errorf("connect account %s: %w", credential.AccountID, err)
	}

	s, ok := live.ctrl.Session(credential.AccountID)
	if !ok || !s.Ready() {
		return fmt.Errorf("connect account %s: session did not come online", credential.AccountID)
	}
	if err := live.ctrl.SwitchAccount(ctx, credential.AccountID); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", credential.Name, credential.AccountID)
	return err
}

func mfaPrompter(cmd *cobra.Command, totpSecret string) ports.MFAPrompter {
	interactive := tui.Prompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
	if totpSecret == "" {
		return interactive
	}
	return totp.Prompter{Secret: totpSecret, Fallback: interactive}
}

func newLogoutCmd(app *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout [account-id]",
		Short: "Sign out of an account on the server and forget it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ids, err := logoutTargets(ctx, app, args, all)
			if err != nil {
				return err
			}

			stored, err := app.credentials.List(ctx)
			if err != nil {
				return err
			}
			byID := make(map[domain.AccountID]domain.Credential, len(stored))
			for _, credential := range stored {
				byID[credential.AccountID] = credential
			}

			for _, id := range ids {
				if credential, ok := byID[id]; ok {
					if err := app.api.Logout(ctx, credential); err != nil {
						app.logger.Warn("server logout failed", "account_id", string(id), "error", err)
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout for %s failed: %v\n", id, err)
					}
				}
				if err := app.credentials.Forget(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed out of %s\n", id)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Sign out of every account")

	return cmd
}

func logoutTargets(ctx context.Context, app *app, args []string, all bool) ([]domain.AccountID, error) {
	accounts, err := app.credentials.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	if all {
		ids := make([]domain.AccountID, 0, len(accounts))
		for _, account := range accounts {
			ids = append(ids, account.ID)
		}
		return ids, nil
	}

	var id domain.AccountID
	if len(args) == 1 {
		id = domain.AccountID(strings.TrimSpace(args[0]))
	} else {
		id, err = app.credentials.Current(ctx)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, errors.New("no active account: pass an account id or --all")
		}
	}

	for _, account := range accounts {
		if account.ID == id {
			return []domain.AccountID{id}, nil
		}
	}
	return nil, fmt.Errorf("logout %s: %w", id, domain.ErrAccountNotFound)
}
