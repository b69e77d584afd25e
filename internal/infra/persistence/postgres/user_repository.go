package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/repository"
	"campus/internal/errors"
	"campus/internal/infra/persistence/model"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).First(&userM, id).Error; err != nil {
		return nil, translateUserLookupError(err, "failed to find user by id")
	}

	return toUserDomain(&userM), nil
}

// FindByEmail retrieves a single user by their email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where("email = ?", email).First(&userM).Error; err != nil {
		return nil, translateUserLookupError(err, "failed to find user by email")
	}

	return toUserDomain(&userM), nil
}

// FindByProviderOrEmail prefers the account already linked to the external identity.
func (repo *userRepository) FindByProviderOrEmail(ctx context.Context, provider entity.ProviderType, providerID, email string) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).
		Joins("JOIN social_accounts ON social_accounts.user_id = users.id").
		Where("social_accounts.provider = ? AND social_accounts.provider_id = ?", provider.String(), providerID).
		First(&userM).Error
	if err == nil {
		return toUserDomain(&userM), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "failed to find user by social account")
	}

	if email == "" {
		return nil, repository.ErrUserNotFound
	}

	return repo.FindByEmail(ctx, email)
}

// Count returns the number of rows in users.
func (repo *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.UserModel{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count users")
	}

	return count, nil
}

// ExistsByPhone reports whether a phone number is already taken.
func (repo *userRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&model.UserModel{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check phone")
	}

	return count > 0, nil
}

// LockByID reads the user with SELECT ... FOR UPDATE. It must run inside a transaction.
func (repo *userRepository) LockByID(ctx context.Context, id int64) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&userM, id).Error
	if err != nil {
		return nil, translateUserLookupError(err, "failed to lock user")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user entity.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.Wrap(repository.ErrUserAlreadyExists, "email or phone already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// registrationLockKey identifies the transaction-scoped advisory lock taken by LockRegistrations.
const registrationLockKey int64 = 0x63616d7075730001

// LockRegistrations takes pg_advisory_xact_lock so that concurrent registrations see each
// other's committed rows when counting users. It must run inside a transaction.
func (repo *userRepository) LockRegistrations(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", registrationLockKey).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to lock registrations")
	}

	return nil
}

// SetPasswordResetToken stores a reset token and its expiry.
func (repo *userRepository) SetPasswordResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	return repo.updateColumns(repo.byID(ctx, id), map[string]any{
		"password_token":            token,
		"password_token_expires_at": expiresAt,
	}, repository.ErrUserNotFound, "failed to store reset token")
}

// RedeemPasswordResetToken swaps the password in the same statement that checks the token.
func (repo *userRepository) RedeemPasswordResetToken(ctx context.Context, id int64, token, passwordHash string, now time.Time) error {
	scope := repo.byID(ctx, id).
		Where("password_token = ? AND password_token_expires_at > ?", token, now)

	return repo.updateColumns(scope, map[string]any{
		"password":                  passwordHash,
		"password_token":            nil,
		"password_token_expires_at": nil,
	}, repository.ErrUserStateChanged, "failed to reset password")
}

// ReplacePassword is a compare-and-set on the password column.
func (repo *userRepository) ReplacePassword(ctx context.Context, id int64, currentHash, newHash string) error {
	scope := repo.byID(ctx, id).Where("password = ?", currentHash)

	return repo.updateColumns(scope, map[string]any{
		"password": newHash,
	}, repository.ErrUserStateChanged, "failed to update password")
}

// ConsumeVerificationToken marks the user verified when token is still stored.
func (repo *userRepository) ConsumeVerificationToken(ctx context.Context, id int64, token string, verifiedAt time.Time) error {
	scope := repo.byID(ctx, id).Where("verification_token = ?", token)

	return repo.updateColumns(scope, map[string]any{
		"is_verified":        true,
		"verified_at":        verifiedAt,
		"verification_token": nil,
	}, repository.ErrUserStateChanged, "failed to verify email")
}

// SetBlacklisted writes the ban flag.
func (repo *userRepository) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	return repo.updateColumns(repo.byID(ctx, id), map[string]any{
		"blacklisted": blacklisted,
	}, repository.ErrUserNotFound, "failed to update blacklist flag")
}

func (repo *userRepository) byID(ctx context.Context, id int64) *gorm.DB {
	return repo.db.WithContext(ctx).Model(&model.UserModel{}).Where("id = ?", id)
}

// updateColumns runs an UPDATE limited to columns; noMatch is returned when no row qualified.
func (repo *userRepository) updateColumns(scope *gorm.DB, columns map[string]any, noMatch error, message string) error {
	result := scope.Updates(columns)
	if result.Error != nil {
		if isCheckConstraintViolation(result.Error) {
			return domainerrors.ErrValidationFailed.WrapMessage("user violates a check constraint")
		}

		return domainerrors.NewDatabaseExecuteError(result.Error, message)
	}
	if result.RowsAffected == 0 {
		return errors.WithStack(noMatch)
	}

	return nil
}

func translateUserLookupError(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrUserNotFound
	}

	return errors.Wrap(err, message)
}

// --- Mapper Functions ---

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:                     data.ID,
		FirstName:              data.FirstName,
		LastName:               data.LastName,
		Email:                  data.Email,
		PasswordHash:           data.Password,
		Phone:                  data.Phone,
		Gender:                 data.Gender,
		Address:                data.Address,
		City:                   data.City,
		State:                  data.State,
		Country:                data.Country,
		Image:                  data.Image,
		Notification:           data.Notification,
		Role:                   entity.ParseRole(data.Role),
		IsVerified:             data.IsVerified,
		VerificationToken:      data.VerificationToken,
		VerifiedAt:             data.VerifiedAt,
		PasswordToken:          data.PasswordToken,
		PasswordTokenExpiresAt: data.PasswordTokenExpiresAt,
		Blacklisted:            data.Blacklisted,
		CreatedAt:              data.CreatedAt,
		UpdatedAt:              data.UpdatedAt,
	}
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:                     data.ID,
		FirstName:              data.FirstName,
		LastName:               data.LastName,
		Email:                  data.Email,
		Password:               data.PasswordHash,
		Phone:                  data.Phone,
		Gender:                 data.Gender,
		Address:                data.Address,
		City:                   data.City,
		State:                  data.State,
		Country:                data.Country,
		Image:                  data.Image,
		Notification:           data.Notification,
		Role:                   data.Role.String(),
		IsVerified:             data.IsVerified,
		VerificationToken:      data.VerificationToken,
		VerifiedAt:             data.VerifiedAt,
		PasswordToken:          data.PasswordToken,
		PasswordTokenExpiresAt: data.PasswordTokenExpiresAt,
		Blacklisted:            data.Blacklisted,
		CreatedAt:              data.CreatedAt,
		UpdatedAt:              data.UpdatedAt,
	}
}
