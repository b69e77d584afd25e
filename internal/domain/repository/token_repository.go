package repository

import (
	"context"
	"errors"

	"campus/internal/domain/entity"
)

// ErrTokenNotFound is returned when no session record matches, including a lost compare-and-set.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenRepository stores server-side session records.
type TokenRepository interface {
	// FindTokenByUser returns the latest session record of the user, valid or not.
	FindTokenByUser(ctx context.Context, userID int64) (*entity.Token, error)

	// FindTokenByValue returns the record holding value, with Token.User populated.
	FindTokenByValue(ctx context.Context, value string) (*entity.Token, error)

	// CreateToken persists a new session record.
	CreateToken(ctx context.Context, token *entity.Token) error

	// UpdateToken applies patch to the record. With ExpectRefreshToken set, a row that no longer
	// holds the expected valid value is left untouched and ErrTokenNotFound is returned.
	UpdateToken(ctx context.Context, id int64, patch entity.TokenPatch) error

	// InvalidateTokensByValue flags every record holding value as invalid and returns how many changed.
	InvalidateTokensByValue(ctx context.Context, value string) (int64, error)
}
