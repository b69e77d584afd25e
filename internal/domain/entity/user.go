// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "time"

// User is an account of the institution. Records are never hard-deleted.
type User struct {
	ID                     int64      // Primary key.
	FirstName              string     // Given name, copied into access token claims.
	LastName               string     // Family name.
	Email                  string     // Unique login identifier.
	PasswordHash           string     // Opaque hash; the family is inferred from its prefix.
	Phone                  string     // Unique phone number, or a synthesized placeholder for social signups.
	Gender                 string     // Free-form gender value.
	Address                string     // Street address.
	City                   string     // City.
	State                  string     // State or province.
	Country                string     // Country.
	Image                  string     // Avatar URL.
	Notification           bool       // Email notification preference.
	Role                   Role       // admin or user.
	IsVerified             bool       // Whether the email address has been confirmed.
	VerificationToken      *string    // Pending email verification token.
	VerifiedAt             *time.Time // When the email was confirmed.
	PasswordToken          *string    // Pending password reset token.
	PasswordTokenExpiresAt *time.Time // Reset token deadline.
	Blacklisted            bool       // Banned accounts cannot establish sessions.
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// SessionGate returns the first account check the user fails, or GateOpen.
func (u *User) SessionGate() SessionGate {
	switch {
	case !u.IsVerified:
		return GateEmailNotVerified
	case u.Blacklisted:
		return GateBanned
	default:
		return GateOpen
	}
}

// SessionGate is the outcome of the account checks that run before any session is issued.
type SessionGate int

const (
	GateOpen SessionGate = iota
	GateEmailNotVerified
	GateBanned
)

// TokenUser is the claims projection of a User embedded in access tokens.
// It never carries the password hash.
type TokenUser struct {
	UserID            int64  `json:"user_id"`
	FirstName         string `json:"firstName"`
	Email             string `json:"email"`
	Role              Role   `json:"role"`
	Address           string `json:"address"`
	Image             string `json:"image"`
	Phone             string `json:"phone"`
	Gender            string `json:"gender"`
	EmailNotification bool   `json:"emailNotification"`
}

// NewTokenUser projects the user onto the claims it exposes to clients.
func NewTokenUser(u *User) TokenUser {
	return TokenUser{
		UserID:            u.ID,
		FirstName:         u.FirstName,
		Email:             u.Email,
		Role:              u.Role,
		Address:           u.Address,
		Image:             u.Image,
		Phone:             u.Phone,
		Gender:            u.Gender,
		EmailNotification: u.Notification,
	}
}
