// Package entity contains the core business objects of the project.
package entity

import "slices"

// Role is the authorization level carried in access token claims.
type Role string

const (
	// RoleAdmin is granted to the first account ever registered.
	RoleAdmin Role = "admin"
	// RoleUser is every other account, local or social.
	RoleUser Role = "user"
)

func (r Role) String() string {
	return string(r)
}

// ParseRole maps a stored role onto a known one. Anything unrecognised gets the least privilege.
func ParseRole(s string) Role {
	if role := Role(s); role == RoleAdmin {
		return role
	}

	return RoleUser
}

// RoleForNewAccount returns admin for the very first account and user afterwards.
// existingUsers must be counted in the transaction that inserts the account.
func RoleForNewAccount(existingUsers int64) Role {
	if existingUsers == 0 {
		return RoleAdmin
	}

	return RoleUser
}

// Roles is the set of roles a route accepts.
type Roles []Role

func (rs Roles) Contains(role Role) bool {
	return slices.Contains(rs, role)
}

// ToStrings is used for log attributes.
func (rs Roles) ToStrings() []string {
	result := make([]string, len(rs))
	for i, r := range rs {
		result[i] = r.String()
	}

	return result
}
