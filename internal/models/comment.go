package models

import "time"

// DeletedCommentPlaceholder replaces the body of a soft-deleted comment that
// is kept in thread listings because it still has visible replies.
const DeletedCommentPlaceholder = "[deleted]"

// Comment represents a comment on a post. Nesting is one level deep:
// ParentCommentID always references a top-level comment (replies to replies
// are flattened under the original top-level comment at create time).
type Comment struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Content         string `gorm:"type:text;not null" json:"content"`
	Status          string `gorm:"size:16;not null;default:active;index:idx_comments_post_status_created,priority:2" json:"status"`
	AuthorID        uint   `gorm:"not null;index" json:"author_id"`
	PostID          uint   `gorm:"not null;index:idx_comments_post_status_created,priority:1" json:"post_id"`
	ParentCommentID *uint  `gorm:"index" json:"parent_comment_id,omitempty"`

	// ReplyCount is denormalized and mutated only by atomic increment
	// statements; it counts active direct replies.
	ReplyCount int64 `gorm:"not null;default:0" json:"reply_count"`

	Author  *AuthorRef `gorm:"-" json:"author,omitempty"`
	Replies []*Comment `gorm:"-" json:"replies,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_comments_post_status_created,priority:3" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Mask blanks out author and body of a soft-deleted comment while keeping
// the row addressable for thread integrity.
func (c *Comment) Mask() {
	if c.Status != StatusDeleted {
		return
	}
	c.Content = DeletedCommentPlaceholder
	c.AuthorID = 0
	c.Author = nil
}
