package service

import (
	"context"

	"campus/internal/domain/entity"
)

// ProviderProfile is the normalized identity returned by an external provider.
type ProviderProfile struct {
	Provider   entity.ProviderType
	ProviderID string // Provider-specific subject, e.g. Google's 'sub' claim
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
}

// IdentityProvider drives the authorization code flow of one external provider.
type IdentityProvider interface {
	// Name returns the provider this implementation serves.
	Name() entity.ProviderType

	// AuthCodeURL builds the consent page URL carrying state and the S256 challenge of verifier.
	AuthCodeURL(state, verifier string) string

	// ExchangeCode trades an authorization code for the user's profile.
	ExchangeCode(ctx context.Context, code, verifier string) (*ProviderProfile, error)
}

// IdentityProviderRegistry looks up configured providers by name.
type IdentityProviderRegistry interface {
	Get(provider entity.ProviderType) (IdentityProvider, bool)
}

// OAuthStateStore issues and redeems the single-use state parameter of the code flow
// together with its PKCE verifier.
type OAuthStateStore interface {
	// Issue returns a new random state bound to provider, and the PKCE verifier kept with it.
	Issue(provider entity.ProviderType) (state, verifier string, err error)

	// Consume returns the verifier of a state issued for provider that is neither used nor expired.
	Consume(provider entity.ProviderType, state string) (verifier string, ok bool)
}
