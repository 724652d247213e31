package cli

import (
	"fmt"

	"github.com/jrsteele09/go-session-gateway/session"
	"github.com/spf13/cobra"
)

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "GET an API path with the session's credentials",
		Example: `  sessionctl get /leads
  sessionctl get '/leads?status=new'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if st := a.resume(cmd.Context()); st.Status != session.Authenticated {
				return fmt.Errorf("not signed in, run sessionctl login first")
			}

			resp, err := a.gw.Get(cmd.Context(), args[0])
			if err != nil {
				if session.IsSignInRequired(err) {
					return fmt.Errorf("session expired, run sessionctl login again")
				}
				return err
			}
			if !resp.OK() {
				errColor.Fprintf(cmd.ErrOrStderr(), "%s %s: %d\n", resp.Method, resp.URL, resp.StatusCode)
				return resp.Err()
			}
			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
}
