package model

import "time"

// SocialAccountModel mirrors the 'social_accounts' table.
type SocialAccountModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Provider   string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_social_provider_provider_id;uniqueIndex:idx_social_user_provider"`
	ProviderID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_social_provider_provider_id"`
	UserID     int64     `gorm:"not null;uniqueIndex:idx_social_user_provider"`
	CreatedAt  time.Time

	User *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (SocialAccountModel) TableName() string {
	return "social_accounts"
}
