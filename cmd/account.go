package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bnema/chatctl/internal/domain"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage stored accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountRemoveCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.credentials.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No accounts. Run chatctl login to add one.")
				return err
			}

			current, err := app.credentials.Current(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, account := range accounts {
				marker := " "
				if account.ID == current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, account.ID, account.Name, account.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <account-id>",
		Aliases: []string{"rm"},
		Short:   "Forget an account locally without contacting the server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(strings.TrimSpace(args[0]))
			accounts, err := app.credentials.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			found := false
			for _, account := range accounts {
				found = found || account.ID == id
			}
			if !found {
				return fmt.Errorf("remove account %s: %w", id, domain.ErrAccountNotFound)
			}

			if err := app.credentials.Forget(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed account %s\n", id)
			return err
		},
	}
}

func newSwitchCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <account-id>",
		Short: "Make a stored account the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(strings.TrimSpace(args[0]))
			if err := app.credentials.SetCurrent(cmd.Context(), id); err != nil {
				return fmt.Errorf("switch account %s: %w", id, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Active account: %s\n", id)
			return err
		},
	}
}
