// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"
	"time"

	"campus/internal/domain/entity"
)

var (
	// ErrUserNotFound is a domain-specific error returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when the email or phone is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserStateChanged is returned by conditional writes when the row no longer holds the
	// expected token or hash, for instance a one-time token redeemed by a concurrent request.
	ErrUserStateChanged = errors.New("user changed since it was read")
)

// UserRepository defines the standard operations for user persistence.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id int64) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByProviderOrEmail returns the user linked to (provider, providerID), falling back to
	// the user owning email.
	FindByProviderOrEmail(ctx context.Context, provider entity.ProviderType, providerID, email string) (*entity.User, error)

	// Count returns the number of users ever registered.
	Count(ctx context.Context) (int64, error)

	// ExistsByPhone reports whether a phone number is already taken.
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	// LockByID loads the user with a row lock held until the surrounding transaction ends.
	LockByID(ctx context.Context, id int64) (*entity.User, error)

	// Create persists a new user entity to the storage.
	Create(ctx context.Context, user *entity.User) error

	// LockRegistrations serializes registrations until the surrounding transaction ends.
	LockRegistrations(ctx context.Context) error

	// The setters below write only their own columns.

	// SetPasswordResetToken stores a reset token and its expiry.
	SetPasswordResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error

	// RedeemPasswordResetToken replaces the password hash and clears the reset token, provided
	// token is still stored and unexpired at now. Otherwise ErrUserStateChanged.
	RedeemPasswordResetToken(ctx context.Context, id int64, token, passwordHash string, now time.Time) error

	// ReplacePassword swaps currentHash for newHash. ErrUserStateChanged when the stored hash
	// is no longer currentHash.
	ReplacePassword(ctx context.Context, id int64, currentHash, newHash string) error

	// ConsumeVerificationToken marks the user verified and clears token, provided it is still
	// stored. Otherwise ErrUserStateChanged.
	ConsumeVerificationToken(ctx context.Context, id int64, token string, verifiedAt time.Time) error

	// SetBlacklisted writes the ban flag.
	SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error
}
