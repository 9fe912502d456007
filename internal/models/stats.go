package models

import "time"

// TargetStats is the denormalized counter row for a post or comment.
// Rows are created lazily by the first increment and are only ever mutated
// with increment statements (never read-modify-write), so concurrent
// writers cannot lose updates. The one full overwrite lives in the recount
// repair path.
type TargetStats struct {
	TargetType string `gorm:"primaryKey;size:16" json:"target_type"`
	TargetID   uint   `gorm:"primaryKey" json:"target_id"`

	ViewCount     int64 `gorm:"not null;default:0" json:"view_count"`
	LikeCount     int64 `gorm:"not null;default:0" json:"like_count"`
	DislikeCount  int64 `gorm:"not null;default:0" json:"dislike_count"`
	CommentCount  int64 `gorm:"not null;default:0" json:"comment_count"`
	BookmarkCount int64 `gorm:"not null;default:0" json:"bookmark_count"`

	LastActivityAt time.Time `gorm:"not null" json:"last_activity_at"`
}

// TableName keeps the table name singular-free and explicit.
func (TargetStats) TableName() string { return "target_stats" }

// StatsDelta is a set of counter increments applied in one atomic upsert.
// Zero fields are left untouched; negative values decrement.
type StatsDelta struct {
	Views     int64
	Likes     int64
	Dislikes  int64
	Comments  int64
	Bookmarks int64
}

// IsZero reports whether the delta would be a no-op.
func (d StatsDelta) IsZero() bool {
	return d.Views == 0 && d.Likes == 0 && d.Dislikes == 0 && d.Comments == 0 && d.Bookmarks == 0
}
