package model

import "time"

// UserModel mirrors the 'users' table.
type UserModel struct {
	ID                     int64      `gorm:"primaryKey;autoIncrement"`
	FirstName              string     `gorm:"type:varchar(100);not null"`
	LastName               string     `gorm:"type:varchar(100);not null"`
	Email                  string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Password               string     `gorm:"type:varchar(255);not null"`
	Phone                  string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	Gender                 string     `gorm:"type:varchar(20)"`
	Address                string     `gorm:"type:varchar(255)"`
	City                   string     `gorm:"type:varchar(100)"`
	State                  string     `gorm:"type:varchar(100)"`
	Country                string     `gorm:"type:varchar(100)"`
	Image                  string     `gorm:"type:text"`
	Notification           bool       `gorm:"not null"`
	Role                   string     `gorm:"type:varchar(20);not null;default:user"`
	IsVerified             bool       `gorm:"not null"`
	VerificationToken      *string    `gorm:"type:varchar(255)"`
	VerifiedAt             *time.Time
	PasswordToken          *string `gorm:"type:varchar(255)"`
	PasswordTokenExpiresAt *time.Time
	Blacklisted            bool `gorm:"not null"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
