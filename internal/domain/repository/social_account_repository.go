package repository

import (
	"context"
	"errors"

	"campus/internal/domain/entity"
)

var (
	// ErrSocialAccountNotFound is returned when no link exists for the lookup.
	ErrSocialAccountNotFound = errors.New("social account not found")
	// ErrSocialAccountExists is returned when the (provider, provider id) or (user, provider) pair is taken.
	ErrSocialAccountExists = errors.New("social account already linked")
)

// SocialAccountRepository stores links between users and external identities.
type SocialAccountRepository interface {
	FindByProvider(ctx context.Context, provider entity.ProviderType, providerID string) (*entity.SocialAccount, error)
	FindByUserAndProvider(ctx context.Context, userID int64, provider entity.ProviderType) (*entity.SocialAccount, error)
	ListByUser(ctx context.Context, userID int64) ([]*entity.SocialAccount, error)
	Create(ctx context.Context, account *entity.SocialAccount) error
}
