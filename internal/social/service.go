package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const defaultFeedLimit = 50

var (
	// ErrNotFound indicates the requested post or comment does not exist.
	ErrNotFound = errors.New("social: record not found")
	// ErrForbidden indicates the caller does not own the record.
	ErrForbidden = errors.New("social: not the owner")
	// ErrInvalidInput indicates unusable input for a create.
	ErrInvalidInput = errors.New("social: invalid input")
)

// IDProvider issues identifiers for new rows.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the social service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	FeedLimit  int
}

// Service owns posts, comments, and the follow-scoped feed.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
	feedLimit  int
}

// NewService constructs the social service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("social: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("social: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	limit := cfg.FeedLimit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
		feedLimit:  limit,
	}, nil
}

// CreatePost stores a new update for the user.
func (s *Service) CreatePost(ctx context.Context, userID, body, ficID string) (Post, error) {
	body = strings.TrimSpace(body)
	if userID == "" || body == "" {
		return Post{}, ErrInvalidInput
	}

	postID, err := s.idProvider.NewID()
	if err != nil {
		return Post{}, err
	}
	post := Post{
		PostID: postID,
		UserID: userID,
		FicID:  strings.TrimSpace(ficID),
		Body:   body,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return Post{}, err
	}
	return post, nil
}

// DeletePost removes a post the user owns, together with its comments.
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	var post Post
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", postID).Delete(&Post{}).Error
	})
}

// ListPostsByUser returns the user's posts, newest first.
func (s *Service) ListPostsByUser(ctx context.Context, userID string) ([]Post, error) {
	var posts []Post
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Feed returns the newest posts from the given authors (the caller plus the
// accounts they follow), capped at the configured limit.
func (s *Service) Feed(ctx context.Context, authorIDs []string) ([]Post, error) {
	if len(authorIDs) == 0 {
		return []Post{}, nil
	}
	var posts []Post
	err := s.db.WithContext(ctx).
		Where("user_id IN ?", authorIDs).
		Order("created_at DESC").
		Limit(s.feedLimit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// CreateComment attaches a reply to an existing post.
func (s *Service) CreateComment(ctx context.Context, userID, postID, body string) (Comment, error) {
	body = strings.TrimSpace(body)
	if userID == "" || body == "" {
		return Comment{}, ErrInvalidInput
	}

	var post Post
	err := s.db.WithContext(ctx).
		Select("post_id").
		Where("post_id = ?", postID).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, err
	}

	commentID, err := s.idProvider.NewID()
	if err != nil {
		return Comment{}, err
	}
	comment := Comment{
		CommentID: commentID,
		PostID:    postID,
		UserID:    userID,
		Body:      body,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return Comment{}, err
	}
	return comment, nil
}

// DeleteComment removes a comment the user owns.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID string) error {
	var comment Comment
	err := s.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Take(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Delete(&Comment{}).Error
}

// ListComments returns a post's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	var comments []Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
