package models

import "time"

// User represents a registered account. Profile fields (display name, email,
// avatar) are what the membership directory resolves per member.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:30;not null;uniqueIndex" json:"username"`
	DisplayName string    `gorm:"size:80" json:"display_name"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	Avatar      string    `gorm:"size:512" json:"avatar"`
	Bio         string    `gorm:"type:text" json:"bio"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// Profile is the subset of user fields the membership directory exposes.
type Profile struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Avatar      string `json:"avatar"`
}

// ProfileOf projects a user onto its directory profile.
func ProfileOf(u *User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Avatar:      u.Avatar,
	}
}
