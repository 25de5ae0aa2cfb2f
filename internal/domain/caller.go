package domain

import "strings"

// Roles recognised by dispatch
const (
	RoleSeller  = "seller"
	RolePartner = "partner"
	RoleSystem  = "system"
)

// Caller is the already-resolved identity performing an operation.
type Caller struct {
	ID    int64
	Roles []string
}

// HasRole reports whether the caller carries role (case-insensitive).
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
