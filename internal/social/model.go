package social

import "time"

// Post is a social update, optionally referencing a fic.
type Post struct {
	PostID    string    `gorm:"column:post_id;primaryKey;size:190;not null"`
	UserID    string    `gorm:"column:user_id;size:190;not null;index:idx_posts_user_created,priority:1"`
	FicID     string    `gorm:"column:fic_id;size:190;not null;default:''"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_posts_user_created,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Post) TableName() string {
	return "posts"
}

// Comment is a reply attached to a post.
type Comment struct {
	CommentID string    `gorm:"column:comment_id;primaryKey;size:190;not null"`
	PostID    string    `gorm:"column:post_id;size:190;not null;index:idx_comments_post"`
	UserID    string    `gorm:"column:user_id;size:190;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "comments"
}
