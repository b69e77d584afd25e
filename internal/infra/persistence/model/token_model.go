package model

import "time"

// TokenModel mirrors the 'tokens' table. Rows are never deleted by the application.
type TokenModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	UserID       int64     `gorm:"not null;index"`
	RefreshToken string    `gorm:"type:varchar(255);not null;index"`
	IsValid      bool      `gorm:"not null"`
	UserAgent    string    `gorm:"type:text"`
	IP           string    `gorm:"column:ip;type:varchar(64)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	User *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (TokenModel) TableName() string {
	return "tokens"
}
