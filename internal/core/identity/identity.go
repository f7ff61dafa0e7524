// Package identity contains the roles and identities consumed by the core engines.
// Identities are resolved outside the core and passed in explicitly.
package identity

import (
	"fmt"
	"strings"
)

// Role represents what a user may do in the routing workflow.
type Role string

const (
	RoleClerk         Role = "clerk"
	RoleOfficer       Role = "officer"
	RoleOperative     Role = "operative"
	RoleAdministrator Role = "administrator"
	RoleExternal      Role = "external"
)

// legacyRoles maps labels found in imported historical data.
var legacyRoles = map[string]Role{
	"tata usaha":    RoleClerk,
	"pejabat":       RoleOfficer,
	"pelaksana":     RoleOperative,
	"administrator": RoleAdministrator,
	"external":      RoleExternal,
}

// ParseRole parses a role name, accepting legacy labels.
func ParseRole(s string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch Role(normalized) {
	case RoleClerk, RoleOfficer, RoleOperative, RoleAdministrator, RoleExternal:
		return Role(normalized), nil
	}
	if r, ok := legacyRoles[normalized]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q (expected clerk, officer, operative, administrator or external)", s)
}

// CanDispose reports whether the role may create disposition nodes at all.
func (r Role) CanDispose() bool { return r == RoleOfficer }

// CanExecute reports whether the role may mark its own participation executed.
func (r Role) CanExecute() bool { return r == RoleOperative }

// CanCreateLetter reports whether the role may register incoming letters.
func (r Role) CanCreateLetter() bool { return r == RoleClerk }

// Participates reports whether the role can receive or act on dispositions.
func (r Role) Participates() bool { return r == RoleOfficer || r == RoleOperative }

// Identity is the acting user as seen by the engines.
type Identity struct {
	UserID       string
	Role         Role
	SupervisorID string // officers only, may be empty
}

// User is a directory entry used for display and recipient validation.
type User struct {
	ID           string
	Name         string
	Role         Role
	SupervisorID string
}

// DisplayName returns the name, falling back to the id.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
