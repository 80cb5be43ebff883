package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"panic-list/internal/adapters/cli"
	"panic-list/internal/adapters/repl"
	"panic-list/internal/app"
	"panic-list/internal/session"

	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a backend token",
	Long: `Store a marketplace backend token as the current session.

The token is read from --token, or from stdin when the flag is omitted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		token := loginToken
		if token == "" {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read token from stdin: %w", err)
			}
			token = strings.TrimSpace(line)
		}
		sess, err := deps.provider.Refresh(cmd.Context(), token)
		if err != nil {
			return err
		}
		cli.PrintSession(cmd.OutOrStdout(), sess)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := deps.provider.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := loadSession(cmd)
		if err != nil {
			return err
		}
		cli.PrintSession(cmd.OutOrStdout(), sess)
		return nil
	},
}

var (
	listReq  app.CustomerListRequest
	listJSON bool
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List customers grouped from the provider's orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := loadSession(cmd)
		if err != nil {
			return err
		}
		q, err := listReq.Query()
		if err != nil {
			return err
		}
		result, err := deps.svc.ListCustomerGroups(cmd.Context(), sess, q)
		if err != nil {
			return err
		}
		if listJSON {
			return cli.PrintJSON(cmd.OutOrStdout(), result)
		}
		cli.PrintCustomerPage(cmd.OutOrStdout(), result)
		return nil
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Browse customers interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := loadSession(cmd)
		if err != nil {
			return err
		}
		return repl.Run(cmd.Context(), deps.svc, sess, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "backend token (read from stdin if empty)")

	f := customersCmd.Flags()
	f.StringVar(&listReq.Search, "search", "", "match customer name or email")
	f.StringVar(&listReq.Status, "status", "", "only customers with an order in this status")
	f.StringVar(&listReq.PaymentStatus, "payment", "", "only customers with an order in this payment status")
	f.IntVar(&listReq.Page, "page", 1, "page number, 1-based")
	f.IntVar(&listReq.PageSize, "page-size", 10, "customers per page (max 100)")
	f.BoolVar(&listJSON, "json", false, "print the page as JSON")
}

func loadSession(cmd *cobra.Command) (*session.Session, error) {
	sess, err := deps.provider.Load(cmd.Context())
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil, errors.New("not signed in; run `app login` first")
	case errors.Is(err, session.ErrExpired):
		return nil, errors.New("session expired; run `app login` again")
	}
	return sess, err
}
