package domain

import (
	"strings"
	"time"
)

// Role is one of the fixed authorities a credential can hold.
type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleAgent    Role = "ROLE_AGENT"
	RoleCustomer Role = "ROLE_CUSTOMER"
)

// DefaultRole is assigned when registration asks for nothing usable.
const DefaultRole = RoleCustomer

const rolePrefix = "ROLE_"

var knownRoles = map[Role]struct{}{
	RoleAdmin:    {},
	RoleAgent:    {},
	RoleCustomer: {},
}

// Valid reports whether r belongs to the fixed role set.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) String() string { return string(r) }

// NormalizeRole picks the role for a new credential from the requested list.
// Only the first entry is considered: it is trimmed, upper-cased and prefixed
// with ROLE_ when missing. Anything unrecognised falls back to DefaultRole.
func NormalizeRole(requested []string) Role {
	if len(requested) == 0 {
		return DefaultRole
	}
	s := strings.ToUpper(strings.TrimSpace(requested[0]))
	if s == "" {
		return DefaultRole
	}
	if !strings.HasPrefix(s, rolePrefix) {
		s = rolePrefix + s
	}
	if r := Role(s); r.Valid() {
		return r
	}
	return DefaultRole
}

// User models a stored credential.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
