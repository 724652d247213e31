// Package capability answers "may this role reach this resource". It is the
// only place in the module that compares roles.
package capability

import (
	"sort"

	"github.com/jrsteele09/go-session-gateway/users"
)

// Resource names a protected view or feature.
type Resource string

const (
	Dashboard Resource = "dashboard"
	Leads     Resource = "leads"
	Agent     Resource = "agent"
	Campaigns Resource = "campaigns"
	Settings  Resource = "settings"

	AdminPanel    Resource = "admin-panel"
	AdminTenants  Resource = "admin-tenants"
	AdminUsers    Resource = "admin-users"
	AdminUsage    Resource = "admin-usage"
	AdminSettings Resource = "admin-settings"
)

type roleSet map[users.Role]struct{}

func allow(roles ...users.Role) roleSet {
	s := make(roleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

var (
	everyone = allow(users.RoleOwner, users.RoleAdmin, users.RoleUser, users.RoleViewer)
	admins   = allow(users.RoleOwner, users.RoleAdmin)
)

var table = map[Resource]roleSet{
	Dashboard: everyone,
	Leads:     everyone,
	Campaigns: everyone,
	Settings:  everyone,
	Agent:     everyone,

	AdminPanel:    admins,
	AdminTenants:  admins,
	AdminUsers:    admins,
	AdminUsage:    admins,
	AdminSettings: admins,
}

// CanAccess reports whether role may reach resource. Unknown roles and
// unknown resources are denied.
func CanAccess(role users.Role, resource Resource) bool {
	roles, ok := table[resource]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// Visible reports whether an entry for resource should be shown to u, for
// example a menu link. A nil user sees nothing.
func Visible(u *users.User, resource Resource) bool {
	if u == nil {
		return false
	}
	return CanAccess(u.Role, resource)
}

// Known reports whether resource appears in the capability table.
func Known(resource Resource) bool {
	_, ok := table[resource]
	return ok
}

// Resources returns every resource in the table, sorted by name.
func Resources() []Resource {
	out := make([]Resource, 0, len(table))
	for r := range table {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Allowed returns the resources role may reach, sorted by name.
func Allowed(role users.Role) []Resource {
	var out []Resource
	for _, r := range Resources() {
		if CanAccess(role, r) {
			out = append(out, r)
		}
	}
	return out
}
