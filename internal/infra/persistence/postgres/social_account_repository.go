package postgres

import (
	"context"

	"gorm.io/gorm"

	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/repository"
	"campus/internal/errors"
	"campus/internal/infra/persistence/model"
)

// socialAccountRepository implements repository.SocialAccountRepository on social_accounts.
type socialAccountRepository struct {
	db *gorm.DB
}

// NewSocialAccountRepository is the constructor for socialAccountRepository.
func NewSocialAccountRepository(db *gorm.DB) repository.SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

func (repo *socialAccountRepository) FindByProvider(ctx context.Context, provider entity.ProviderType, providerID string) (*entity.SocialAccount, error) {
	var accountM model.SocialAccountModel
	err := repo.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider.String(), providerID).
		First(&accountM).Error
	if err != nil {
		return nil, translateSocialLookupError(err)
	}

	return toSocialAccountDomain(&accountM), nil
}

func (repo *socialAccountRepository) FindByUserAndProvider(ctx context.Context, userID int64, provider entity.ProviderType) (*entity.SocialAccount, error) {
	var accountM model.SocialAccountModel
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider.String()).
		First(&accountM).Error
	if err != nil {
		return nil, translateSocialLookupError(err)
	}

	return toSocialAccountDomain(&accountM), nil
}

func (repo *socialAccountRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.SocialAccount, error) {
	var accountsM []model.SocialAccountModel
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&accountsM).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list social accounts")
	}

	accounts := make([]*entity.SocialAccount, 0, len(accountsM))
	for i := range accountsM {
		accounts = append(accounts, toSocialAccountDomain(&accountsM[i]))
	}

	return accounts, nil
}

func (repo *socialAccountRepository) Create(ctx context.Context, account *entity.SocialAccount) error {
	accountM := fromSocialAccountDomain(account)

	if err := repo.db.WithContext(ctx).Omit("User").Create(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrSocialAccountExists
		}
		if isForeignKeyConstraintViolation(err) {
			return errors.Wrap(repository.ErrUserNotFound, "social account owner does not exist")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create social account")
	}

	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt

	return nil
}

func translateSocialLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrSocialAccountNotFound
	}

	return errors.Wrap(err, "failed to find social account")
}

func toSocialAccountDomain(data *model.SocialAccountModel) *entity.SocialAccount {
	return &entity.SocialAccount{
		ID:         data.ID,
		Provider:   entity.ProviderType(data.Provider),
		ProviderID: data.ProviderID,
		UserID:     data.UserID,
		CreatedAt:  data.CreatedAt,
	}
}

func fromSocialAccountDomain(data *entity.SocialAccount) *model.SocialAccountModel {
	return &model.SocialAccountModel{
		ID:         data.ID,
		Provider:   data.Provider.String(),
		ProviderID: data.ProviderID,
		UserID:     data.UserID,
		CreatedAt:  data.CreatedAt,
	}
}
