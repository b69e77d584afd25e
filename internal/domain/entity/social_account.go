package entity

import "time"

// ProviderType names an external identity provider.
type ProviderType string

const (
	ProviderGoogle   ProviderType = "google"
	ProviderGitHub   ProviderType = "github"
	ProviderFacebook ProviderType = "facebook"
	ProviderTwitter  ProviderType = "twitter"
)

// String returns the string representation of the ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// IsValid checks if the ProviderType is a known provider.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub, ProviderFacebook, ProviderTwitter:
		return true
	default:
		return false
	}
}

// SocialAccount links a User to an identity at an external provider.
// (Provider, ProviderID) and (UserID, Provider) are both unique.
type SocialAccount struct {
	ID         int64
	Provider   ProviderType
	ProviderID string // Subject identifier issued by the provider.
	UserID     int64
	CreatedAt  time.Time
}
