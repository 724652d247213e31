package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-session-gateway/capability"
	"github.com/jrsteele09/go-session-gateway/routeguard"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/spf13/cobra"
)

func newCanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can <role> [resource]",
		Short: "Check the capability table",
		Long: `Report whether a role may open a resource. Without a resource, list
everything the role can reach.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := users.Role(args[0])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q (want one of %v)", role, users.Roles)
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				for _, r := range capability.Allowed(role) {
					fmt.Fprintln(out, r)
				}
				return nil
			}

			resource := capability.Resource(args[1])
			if !capability.Known(resource) {
				return fmt.Errorf("unknown resource %q", resource)
			}
			if capability.CanAccess(role, resource) {
				okColor.Fprintln(out, "allowed")
			} else {
				errColor.Fprintln(out, "denied")
			}
			return nil
		},
	}
}

func newRoutesCmd(opts *options) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table and its guards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			routes, err := loadRoutes(opts)
			if err != nil {
				return err
			}

			if asYAML {
				b, err := routeguard.MarshalRoutes(routes)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tTITLE\tGUARD")
			for _, r := range routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, r.Title, guardName(r))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as a loadable YAML route file")
	return cmd
}

func loadRoutes(opts *options) ([]routeguard.Route, error) {
	if opts.routesFile == "" {
		return routeguard.DefaultRoutes(), nil
	}
	return routeguard.LoadRoutesFile(opts.routesFile)
}

func guardName(r routeguard.Route) string {
	switch {
	case r.Public:
		return "public"
	case r.Capability != "":
		return "capability:" + string(r.Capability)
	default:
		return "authenticated"
	}
}
