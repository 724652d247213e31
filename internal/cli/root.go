// Package cli implements sessionctl, a command line host for the session
// gateway.
package cli

import (
	"context"
	"os"
	"time"

	"github.com/jrsteele09/go-session-gateway/internal/config"
	"github.com/jrsteele09/go-session-gateway/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	cfg        config.Config
	apiURL     string
	credsPath  string
	issuer     string
	routesFile string
	logLevel   string
	timeout    time.Duration
}

// NewRootCmd builds the sessionctl command tree. Flag defaults come from
// cfg.
func NewRootCmd(cfg config.Config) *cobra.Command {
	opts := &options{cfg: cfg}

	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Sign in to the API and call it with a managed session",
		Long: `sessionctl keeps an authenticated session with the API backend.

Credentials are stored locally and refreshed transparently; a refresh that
fails signs you out.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Install(logging.New(opts.logLevel, cfg.GetLogPretty(), cmd.ErrOrStderr()))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.apiURL, "api", cfg.GetAPIBaseURL(), "API base URL")
	pf.StringVar(&opts.credsPath, "creds", cfg.GetCredentialsPath(), "credential database path")
	pf.StringVar(&opts.issuer, "issuer", cfg.GetIssuerURL(), "OIDC issuer to discover endpoints from")
	pf.StringVar(&opts.routesFile, "routes-file", cfg.GetRoutesFile(), "YAML route table")
	pf.StringVar(&opts.logLevel, "log-level", cfg.GetLogLevel(), "log level")
	pf.DurationVar(&opts.timeout, "timeout", cfg.GetRequestTimeout(), "request timeout")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newRegisterCmd(opts),
		newWhoAmICmd(opts),
		newGetCmd(opts),
		newCanCmd(),
		newRoutesCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// Execute runs sessionctl with the process configuration.
func Execute() error {
	return NewRootCmd(config.New()).ExecuteContext(context.Background())
}

func passwordFromEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("SESSIONCTL_PASSWORD")
}
