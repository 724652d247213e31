package routeguard

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-session-gateway/capability"
	"gopkg.in/yaml.v3"
)

// Route declares one view and what it takes to see it.
type Route struct {
	Path       string              `yaml:"path"`
	Title      string              `yaml:"title,omitempty"`
	Public     bool                `yaml:"public,omitempty"`
	Capability capability.Resource `yaml:"capability,omitempty"`
}

// Guard returns the guard protecting the route.
func (r Route) Guard() Guard {
	switch {
	case r.Public:
		return Public()
	case r.Capability != "":
		return RequireCapability(r.Capability)
	default:
		return Authenticated()
	}
}

type routesFile struct {
	Routes []Route `yaml:"routes"`
}

// DefaultRoutes is the application's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/dashboard", Title: "Dashboard", Capability: capability.Dashboard},
		{Path: "/leads", Title: "Leads", Capability: capability.Leads},
		{Path: "/agent", Title: "Agent", Capability: capability.Agent},
		{Path: "/campaigns", Title: "Campaigns", Capability: capability.Campaigns},
		{Path: "/settings", Title: "Settings", Capability: capability.Settings},
		{Path: "/admin", Title: "Admin Panel", Capability: capability.AdminPanel},
		{Path: "/admin/tenants", Title: "Tenants", Capability: capability.AdminTenants},
		{Path: "/admin/users", Title: "Users", Capability: capability.AdminUsers},
		{Path: "/admin/usage", Title: "Usage", Capability: capability.AdminUsage},
		{Path: "/admin/settings", Title: "System Settings", Capability: capability.AdminSettings},
	}
}

// LoadRoutes reads a YAML route table of the form
//
//	routes:
//	  - path: /admin/users
//	    capability: admin-users
func LoadRoutes(r io.Reader) ([]Route, error) {
	var f routesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("[LoadRoutes] empty route file")
		}
		return nil, fmt.Errorf("[LoadRoutes] %w", err)
	}

	seen := make(map[string]struct{}, len(f.Routes))
	for i, rt := range f.Routes {
		if !strings.HasPrefix(rt.Path, "/") {
			return nil, fmt.Errorf("[LoadRoutes] route %d: path %q must start with /", i, rt.Path)
		}
		if _, dup := seen[rt.Path]; dup {
			return nil, fmt.Errorf("[LoadRoutes] duplicate route %s", rt.Path)
		}
		seen[rt.Path] = struct{}{}
		if rt.Capability != "" && !capability.Known(rt.Capability) {
			return nil, fmt.Errorf("[LoadRoutes] route %s: unknown capability %q", rt.Path, rt.Capability)
		}
		if rt.Public && rt.Capability != "" {
			return nil, fmt.Errorf("[LoadRoutes] route %s: public routes cannot require a capability", rt.Path)
		}
	}
	return f.Routes, nil
}

// LoadRoutesFile reads the route table at path.
func LoadRoutesFile(path string) ([]Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[LoadRoutesFile] %w", err)
	}
	defer f.Close()
	return LoadRoutes(f)
}

// MarshalRoutes renders routes in the format LoadRoutes reads.
func MarshalRoutes(routes []Route) ([]byte, error) {
	return yaml.Marshal(routesFile{Routes: routes})
}
