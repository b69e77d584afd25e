package entity

import "time"

// Token is a server-side session record holding an opaque refresh token.
// Rotation overwrites RefreshToken on the same row; logout only flips IsValid.
type Token struct {
	ID           int64
	UserID       int64
	RefreshToken string
	IsValid      bool
	UserAgent    string
	IP           string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// User is populated by lookups that join the owning account.
	User *User
}

// TokenPatch lists the columns to change on a Token. Nil fields are left untouched.
type TokenPatch struct {
	RefreshToken *string
	IsValid      *bool

	// ExpectRefreshToken turns the update into a compare-and-set: it only applies while the
	// row still holds this value and is valid.
	ExpectRefreshToken *string
}
