package cli

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fatih/color"
	"github.com/jrsteele09/go-session-gateway/credentials"
	"github.com/jrsteele09/go-session-gateway/session"
	"github.com/spf13/cobra"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in and store the session credentials locally.

The password can also be given through SESSIONCTL_PASSWORD.

Examples:
  sessionctl login --email owner@example.com --password 'S3cret!'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password = passwordFromEnv(password)
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.machine.Login(cmd.Context(), email, password)
			if err != nil {
				if session.IsSignInRequired(err) {
					return fmt.Errorf("sign in failed: incorrect email or password")
				}
				return fmt.Errorf("sign in failed: %w", err)
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newRegisterCmd(opts *options) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password = passwordFromEnv(password)
			if name == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --email and --password are required")
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.machine.Register(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	var revokePath string
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if revokePath != "" {
				revoke(cmd, a, revokePath)
			}
			a.machine.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
	cmd.Flags().StringVar(&revokePath, "revoke", "/auth/revoke", "backend path to revoke tokens at; empty skips it")
	return cmd
}

// revoke asks the backend to invalidate the stored tokens. Failure only
// warns: the local sign out happens regardless.
func revoke(cmd *cobra.Command, a *app, path string) {
	pair, ok, _ := a.vault.Load()
	if !ok {
		return
	}
	resp, err := a.gw.Post(cmd.Context(), path, url.Values{"refresh_token": {pair.RefreshToken}})
	switch {
	case err != nil:
		warnColor.Fprintf(cmd.ErrOrStderr(), "Token revocation failed: %v\n", err)
	case !resp.OK():
		warnColor.Fprintf(cmd.ErrOrStderr(), "Token revocation failed: %v\n", resp.Err())
	}
}

func newWhoAmICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			st := a.resume(cmd.Context())
			if st.Status != session.Authenticated {
				warnColor.Fprintln(out, "Not signed in")
				if st.Reason != nil {
					fmt.Fprintf(out, "  reason:  %v\n", st.Reason)
				}
				return nil
			}

			u := st.User
			okColor.Fprintf(out, "Signed in as %s <%s>\n", u.Name, u.Email)
			fmt.Fprintf(out, "  role:    %s\n", u.Role)
			fmt.Fprintf(out, "  tenant:  %s\n", u.TenantID)

			if pair, ok, _ := a.vault.Load(); ok {
				printTokenExpiry(cmd, pair)
			}
			return nil
		},
	}
}

// printTokenExpiry shows when the access token runs out. The claims are
// read without verification and only displayed.
func printTokenExpiry(cmd *cobra.Command, pair credentials.Pair) {
	claims, err := credentials.Inspect(pair.AccessToken)
	if err != nil || claims.ExpiresAt.IsZero() {
		return
	}
	left := time.Until(claims.ExpiresAt).Round(time.Second)
	if left <= 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  token:   expired, refreshed on next call\n")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  token:   expires in %s\n", left)
}
