package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/papermoth/ficshelf/backend/internal/auth"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrEmailTaken indicates another account already uses the email address.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials indicates the email/password pair did not match an account.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrUserNotFound indicates no account exists for the identifier.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrSelfFollow indicates a user attempted to follow themselves.
	ErrSelfFollow = errors.New("users: cannot follow self")
	// ErrInvalidRegistration indicates the registration input was unusable.
	ErrInvalidRegistration = errors.New("users: invalid registration")
)

// IDProvider issues identifiers for new accounts.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
}

// Service manages accounts and the follow graph.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("users: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
	}, nil
}

// RegistrationInput carries the fields needed to open an account.
type RegistrationInput struct {
	Email       string
	DisplayName string
	Password    string
}

// Register creates a new account. Email addresses are unique case-insensitively.
func (s *Service) Register(ctx context.Context, input RegistrationInput) (Profile, error) {
	email := normalizeEmail(input.Email)
	displayName := normalize(input.DisplayName)
	if email == "" || displayName == "" {
		return Profile{}, ErrInvalidRegistration
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}

	userID, err := s.idProvider.NewID()
	if err != nil {
		return Profile{}, err
	}

	account := User{
		UserID:       userID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&account)
	if result.Error != nil {
		return Profile{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Profile{}, ErrEmailTaken
	}

	return account.profile(), nil
}

// Authenticate resolves an email/password pair to the owning account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Profile, error) {
	var account User
	err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrInvalidCredentials
	}
	if err != nil {
		return Profile{}, err
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Profile{}, ErrInvalidCredentials
		}
		return Profile{}, err
	}

	return account.profile(), nil
}

// GetProfile returns the profile for the given user identifier.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var account User
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrUserNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	return account.profile(), nil
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	DisplayName string
	Bio         string
	AvatarURL   string
}

// UpdateProfile replaces the editable profile fields for the user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (Profile, error) {
	displayName := normalize(update.DisplayName)
	if displayName == "" {
		return Profile{}, ErrInvalidRegistration
	}

	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"display_name": displayName,
			"bio":          normalize(update.Bio),
			"avatar_url":   normalize(update.AvatarURL),
			"updated_at":   s.now().UTC(),
		})
	if result.Error != nil {
		return Profile{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Profile{}, ErrUserNotFound
	}

	return s.GetProfile(ctx, userID)
}

// Follow records that follower follows followee. Following twice is a no-op.
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	if _, err := s.GetProfile(ctx, followeeID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
}

// Unfollow removes the follow edge if present.
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&Follow{}).Error
}

// Followers lists the profiles following the given user.
func (s *Service) Followers(ctx context.Context, userID string) ([]Profile, error) {
	return s.followEdgeProfiles(ctx, "users.user_id = follows.follower_id", "follows.followee_id = ?", userID)
}

// Following lists the profiles the given user follows.
func (s *Service) Following(ctx context.Context, userID string) ([]Profile, error) {
	return s.followEdgeProfiles(ctx, "users.user_id = follows.followee_id", "follows.follower_id = ?", userID)
}

// FollowingIDs returns the identifiers of every account the user follows.
func (s *Service) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) followEdgeProfiles(ctx context.Context, joinOn, filter, userID string) ([]Profile, error) {
	var accounts []User
	err := s.db.WithContext(ctx).
		Model(&User{}).
		Joins("JOIN follows ON "+joinOn).
		Where(filter, userID).
		Order("follows.created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(accounts))
	for _, account := range accounts {
		profiles = append(profiles, account.profile())
	}
	return profiles, nil
}
