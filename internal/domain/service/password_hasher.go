// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

import "strings"

// HashFamily identifies the algorithm that produced a stored password hash.
type HashFamily int

const (
	// HashFamilyLegacy is bcrypt. Existing accounts keep it until their next password write.
	HashFamilyLegacy HashFamily = iota
	// HashFamilyCurrent is argon2id. Every new hash is written with it.
	HashFamilyCurrent
)

// String returns the family name used in logs.
func (f HashFamily) String() string {
	if f == HashFamilyLegacy {
		return "legacy"
	}

	return "current"
}

// FamilyOf resolves the family of a stored hash from its prefix.
func FamilyOf(stored string) HashFamily {
	if strings.HasPrefix(stored, "$2") {
		return HashFamilyLegacy
	}

	return HashFamilyCurrent
}

// PasswordHasher is the capability every hash family provides.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext password.
	Hash(password string) (string, error)

	// Verify reports whether plain matches stored. Malformed hashes never match.
	Verify(stored, plain string) bool
}

// CredentialVerifier checks passwords against hashes of either family and writes new hashes
// with the current family only.
type CredentialVerifier interface {
	// Verify dispatches to the family the stored hash belongs to.
	Verify(stored, plain string) bool

	// VerifyAny tries the current family first, then the legacy one.
	VerifyAny(stored, plain string) bool

	// Hash always uses the current family.
	Hash(plain string) (string, error)

	// Family returns the family of a stored hash.
	Family(stored string) HashFamily
}
