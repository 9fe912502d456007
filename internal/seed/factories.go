// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"agora/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db: db,
		//nolint:gosec // weak randomness is fine for seeding
		r: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var categories = []string{
	"general", "tech", "gaming", "music", "science", "sports", "books", "food",
}

// CreateUser constructs and persists a sample user record, mimicking what
// the identity pipeline would sync in.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:    gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		DisplayName: gofakeit.Name(),
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post struct without persisting it. Useful for
// batching.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:    gofakeit.Sentence(5),
		Content:  gofakeit.Paragraph(2, 4, 8, "\n"),
		Category: categories[f.r.Intn(len(categories))],
		Status:   models.StatusActive,
		AuthorID: author.ID,
	}

	// realistic created_at spread over the last 90 days
	daysBack := f.r.Intn(90)
	hoursBack := f.r.Intn(24)
	minsBack := f.r.Intn(60)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment persists a comment on the given post. When parent is
// non-nil the comment becomes a reply to that top-level comment.
func (f *Factory) CreateComment(post *models.Post, author *models.User, parent *models.Comment, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content:  gofakeit.Sentence(f.r.Intn(20) + 3),
		Status:   models.StatusActive,
		AuthorID: author.ID,
		PostID:   post.ID,
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	comment.CreatedAt = post.CreatedAt.Add(time.Duration(f.r.Intn(72)+1) * time.Hour)

	for _, override := range overrides {
		override(comment)
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateReaction persists a reaction record for the given key. Like and
// dislike are mutually exclusive; bookmark rides along independently.
func (f *Factory) CreateReaction(userID uint, targetType string, targetID uint) (*models.Reaction, error) {
	reaction := &models.Reaction{
		UserID:     userID,
		TargetType: targetType,
		TargetID:   targetID,
	}
	switch f.r.Intn(3) {
	case 0:
		reaction.Liked = true
	case 1:
		reaction.Disliked = true
	}
	if targetType == models.TargetPost && f.r.Intn(5) == 0 {
		reaction.Bookmarked = true
	}
	if !reaction.Liked && !reaction.Disliked && !reaction.Bookmarked {
		reaction.Liked = true
	}
	if err := f.db.Create(reaction).Error; err != nil {
		return nil, err
	}
	return reaction, nil
}
