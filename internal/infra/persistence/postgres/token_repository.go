package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/repository"
	"campus/internal/errors"
	"campus/internal/infra/persistence/model"
)

// tokenRepository implements repository.TokenRepository on the tokens table.
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository is the constructor for tokenRepository.
func NewTokenRepository(db *gorm.DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

// FindTokenByUser returns the most recent record of the user.
func (repo *tokenRepository) FindTokenByUser(ctx context.Context, userID int64) (*entity.Token, error) {
	var tokenM model.TokenModel
	err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&tokenM).Error
	if err != nil {
		return nil, translateTokenLookupError(err, "failed to find token by user")
	}

	return toTokenDomain(&tokenM), nil
}

// FindTokenByValue returns the most recent record holding value, joined with its user.
func (repo *tokenRepository) FindTokenByValue(ctx context.Context, value string) (*entity.Token, error) {
	var tokenM model.TokenModel
	err := repo.db.WithContext(ctx).
		Preload("User").
		Where("refresh_token = ?", value).
		Order("id DESC").
		First(&tokenM).Error
	if err != nil {
		return nil, translateTokenLookupError(err, "failed to find token by value")
	}

	return toTokenDomain(&tokenM), nil
}

// CreateToken inserts a new session record.
func (repo *tokenRepository) CreateToken(ctx context.Context, token *entity.Token) error {
	tokenM := fromTokenDomain(token)

	if err := repo.db.WithContext(ctx).Omit("User").Create(tokenM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrap(repository.ErrUserNotFound, "token owner does not exist")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create token")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt
	token.UpdatedAt = tokenM.UpdatedAt

	return nil
}

// UpdateToken applies the non-nil fields of patch. With ExpectRefreshToken set the WHERE clause
// also requires the expected value and is_valid, so only one concurrent rotation can win.
func (repo *tokenRepository) UpdateToken(ctx context.Context, id int64, patch entity.TokenPatch) error {
	updates := map[string]any{}
	if patch.RefreshToken != nil {
		updates["refresh_token"] = *patch.RefreshToken
	}
	if patch.IsValid != nil {
		updates["is_valid"] = *patch.IsValid
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	query := repo.db.WithContext(ctx).Model(&model.TokenModel{}).Where("id = ?", id)
	if patch.ExpectRefreshToken != nil {
		query = query.Where("refresh_token = ? AND is_valid = ?", *patch.ExpectRefreshToken, true)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update token")
	}
	if result.RowsAffected == 0 {
		return repository.ErrTokenNotFound
	}

	return nil
}

// InvalidateTokensByValue flags every valid record holding value.
func (repo *tokenRepository) InvalidateTokensByValue(ctx context.Context, value string) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.TokenModel{}).
		Where("refresh_token = ? AND is_valid = ?", value, true).
		Updates(map[string]any{"is_valid": false, "updated_at": time.Now()})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to invalidate token")
	}

	return result.RowsAffected, nil
}

func translateTokenLookupError(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrTokenNotFound
	}

	return errors.Wrap(err, message)
}

func toTokenDomain(data *model.TokenModel) *entity.Token {
	if data == nil {
		return nil
	}

	return &entity.Token{
		ID:           data.ID,
		UserID:       data.UserID,
		RefreshToken: data.RefreshToken,
		IsValid:      data.IsValid,
		UserAgent:    data.UserAgent,
		IP:           data.IP,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
		User:         toUserDomain(data.User),
	}
}

func fromTokenDomain(data *entity.Token) *model.TokenModel {
	if data == nil {
		return nil
	}

	return &model.TokenModel{
		ID:           data.ID,
		UserID:       data.UserID,
		RefreshToken: data.RefreshToken,
		IsValid:      data.IsValid,
		UserAgent:    data.UserAgent,
		IP:           data.IP,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
