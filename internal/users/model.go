package users

import (
	"strings"
	"time"
)

// User captures a registered account on the shelf.
type User struct {
	UserID       string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex:idx_users_email"`
	DisplayName  string    `gorm:"column:display_name;size:320;not null"`
	Bio          string    `gorm:"column:bio;type:text;not null;default:''"`
	AvatarURL    string    `gorm:"column:avatar_url;size:512;not null;default:''"`
	PasswordHash string    `gorm:"column:password_hash;size:190;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// Follow records that one user follows another.
type Follow struct {
	FollowerID string    `gorm:"column:follower_id;primaryKey;size:190;not null"`
	FolloweeID string    `gorm:"column:followee_id;primaryKey;size:190;not null;index:idx_follows_followee"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing the follow graph.
func (Follow) TableName() string {
	return "follows"
}

// Profile is the outward-facing view of an account.
type Profile struct {
	UserID      string
	Email       string
	DisplayName string
	Bio         string
	AvatarURL   string
	CreatedAt   time.Time
}

func (u User) profile() Profile {
	return Profile{
		UserID:      u.UserID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
