package models

import "time"

// Reaction kinds accepted by the toggle endpoint.
const (
	KindLike     = "like"
	KindDislike  = "dislike"
	KindBookmark = "bookmark"
)

// ValidReactionKind reports whether k is a toggleable reaction kind.
func ValidReactionKind(k string) bool {
	return k == KindLike || k == KindDislike || k == KindBookmark
}

// Reaction is the single reaction record for a (user, target) pair.
// It is created on first reaction and mutated afterwards, never deleted,
// even when every field has been toggled back to false.
//
// Invariants: Liked and Disliked are never both true; Bookmarked is only
// meaningful when TargetType is "post".
type Reaction struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;uniqueIndex:idx_reactions_target_user,priority:3" json:"user_id"`
	TargetType string `gorm:"size:16;not null;uniqueIndex:idx_reactions_target_user,priority:1" json:"target_type"`
	TargetID   uint   `gorm:"not null;uniqueIndex:idx_reactions_target_user,priority:2" json:"target_id"`

	Liked      bool `gorm:"not null;default:false" json:"liked"`
	Disliked   bool `gorm:"not null;default:false" json:"disliked"`
	Bookmarked bool `gorm:"not null;default:false" json:"bookmarked"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Viewer converts the record to the viewer-facing reaction state.
func (r *Reaction) Viewer() *ViewerReaction {
	return &ViewerReaction{Liked: r.Liked, Disliked: r.Disliked, Bookmarked: r.Bookmarked}
}
