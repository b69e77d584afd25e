package usecase

import (
	"context"

	"campus/internal/domain/entity"
)

// AdminUsecase holds account moderation operations.
type AdminUsecase interface {
	// SetBlacklisted bans or unbans a user. Access tokens already issued stay valid until expiry.
	SetBlacklisted(ctx context.Context, userID int64, blacklisted bool) (*entity.User, error)
}
