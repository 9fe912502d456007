// Package models contains data structures for the application's domain models.
package models

import "time"

// User is a read model of the identity service's user record. Agora never
// creates or mutates users; rows are synced in by the identity pipeline and
// only consumed here for author display metadata.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthorRef is the author display metadata attached to posts and comments.
type AuthorRef struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
}
