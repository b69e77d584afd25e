package auth

import (
	"campus/config"
	"campus/internal/domain/service"
)

// credentialVerifier routes each stored hash to its family and writes new hashes with the current one.
type credentialVerifier struct {
	legacy  service.PasswordHasher
	current service.PasswordHasher
}

// NewCredentialVerifier builds both hash families from the auth configuration.
func NewCredentialVerifier(cfg *config.Config) service.CredentialVerifier {
	return newCredentialVerifier(NewBcryptHasher(cfg.Auth.BcryptCost), NewArgon2Hasher(cfg.Auth.Argon2))
}

func newCredentialVerifier(legacy, current service.PasswordHasher) *credentialVerifier {
	return &credentialVerifier{legacy: legacy, current: current}
}

func (v *credentialVerifier) hasher(family service.HashFamily) service.PasswordHasher {
	if family == service.HashFamilyLegacy {
		return v.legacy
	}

	return v.current
}

// Verify dispatches to the family of the stored hash.
func (v *credentialVerifier) Verify(stored, plain string) bool {
	if stored == "" {
		return false
	}

	return v.hasher(service.FamilyOf(stored)).Verify(stored, plain)
}

// VerifyAny tries the current family first, then the legacy one.
func (v *credentialVerifier) VerifyAny(stored, plain string) bool {
	if stored == "" {
		return false
	}

	return v.current.Verify(stored, plain) || v.legacy.Verify(stored, plain)
}

// Hash always writes with the current family.
func (v *credentialVerifier) Hash(plain string) (string, error) {
	return v.current.Hash(plain)
}

// Family returns the family of a stored hash.
func (v *credentialVerifier) Family(stored string) service.HashFamily {
	return service.FamilyOf(stored)
}
