package models

import "time"

// Post represents a post in Agora.
//
// Counter and author fields tagged `->;-:migration` are not persisted on the
// posts table; they are aliases selected from the target_stats and users
// joins at query time.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Category string `gorm:"index" json:"category,omitempty"`
	Status   string `gorm:"size:16;not null;default:active;index:idx_posts_status_created,priority:1" json:"status"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`

	// Joined counters, zero-defaulted when no target_stats row exists yet.
	ViewCount     int64 `gorm:"->;-:migration" json:"view_count"`
	LikeCount     int64 `gorm:"->;-:migration" json:"like_count"`
	DislikeCount  int64 `gorm:"->;-:migration" json:"dislike_count"`
	CommentCount  int64 `gorm:"->;-:migration" json:"comment_count"`
	BookmarkCount int64 `gorm:"->;-:migration" json:"bookmark_count"`

	// Joined author display metadata.
	AuthorName   string `gorm:"->;-:migration" json:"author_name"`
	AuthorHandle string `gorm:"->;-:migration" json:"author_handle"`

	// Viewer is the requesting user's reaction state, populated by the
	// service layer from a batched reaction fetch. Nil for anonymous reads.
	Viewer *ViewerReaction `gorm:"-" json:"viewer,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_posts_status_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewerReaction is the requesting user's reaction state for a target.
type ViewerReaction struct {
	Liked      bool `json:"liked"`
	Disliked   bool `json:"disliked"`
	Bookmarked bool `json:"bookmarked"`
}
