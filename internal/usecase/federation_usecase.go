package usecase

import (
	"context"

	"campus/internal/domain/entity"
	"campus/internal/domain/service"
)

// AuthorizationOutput is where the client is sent to start a social login.
type AuthorizationOutput struct {
	URL   string
	State string
}

// SocialCallbackInput is the query of the provider redirect.
type SocialCallbackInput struct {
	Provider entity.ProviderType
	Code     string
	State    string
	SessionMeta
}

// FederationUsecase maps external identities onto local accounts.
type FederationUsecase interface {
	AuthorizationURL(ctx context.Context, provider entity.ProviderType) (*AuthorizationOutput, error)
	Callback(ctx context.Context, input *SocialCallbackInput) (*SessionOutput, error)
	Resolve(ctx context.Context, profile *service.ProviderProfile, meta SessionMeta) (*SessionOutput, error)
}
