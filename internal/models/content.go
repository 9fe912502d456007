package models

// Content lifecycle statuses. Rows are never physically removed by the
// engine; moderation and deletes only flip Status. There is no transition
// back to active here — reinstatement is a separate explicit operation.
const (
	StatusActive  = "active"
	StatusHidden  = "hidden"
	StatusDeleted = "deleted"
	StatusPending = "pending"
)

// Reaction target discriminators.
const (
	TargetPost    = "post"
	TargetComment = "comment"
)

// ValidTargetType reports whether t is a known reaction target discriminator.
func ValidTargetType(t string) bool {
	return t == TargetPost || t == TargetComment
}
