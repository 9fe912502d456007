// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"agora/internal/models"

	"gorm.io/gorm"
)

// UserRepository reads author identity records. Users are owned by the
// external identity service; this repository never writes them.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// ResolveAuthors batch-resolves display metadata for a set of author IDs.
	// Callers must issue at most one call per page of results (no per-item
	// lookups). Unknown IDs are simply absent from the returned map.
	ResolveAuthors(ctx context.Context, ids []uint) (map[uint]models.AuthorRef, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ResolveAuthors(ctx context.Context, ids []uint) (map[uint]models.AuthorRef, error) {
	if len(ids) == 0 {
		return map[uint]models.AuthorRef{}, nil
	}

	// dedupe to keep the IN list small
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[uint]models.AuthorRef{}, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", unique).Find(&users).Error; err != nil {
		return nil, err
	}

	refs := make(map[uint]models.AuthorRef, len(users))
	for _, u := range users {
		refs[u.ID] = models.AuthorRef{
			ID:          u.ID,
			DisplayName: u.DisplayName,
			Handle:      u.Username,
		}
	}
	return refs, nil
}
