package repository

import (
	"context"
	"errors"

	"agora/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository owns the one-record-per-(user, target) reaction rows.
type ReactionRepository interface {
	WithTx(tx *gorm.DB) ReactionRepository
	// GetForUpdate loads the reaction row under a row lock so toggles on the
	// same (user, target) key serialize. Returns gorm.ErrRecordNotFound when
	// the record does not exist yet.
	GetForUpdate(ctx context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error)
	// CreateBlank inserts an all-false record for the key, ignoring the
	// insert when a concurrent caller won the race.
	CreateBlank(ctx context.Context, userID uint, targetType string, targetID uint) error
	Save(ctx context.Context, reaction *models.Reaction) error
	Get(ctx context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error)
	// GetForTargets batch-loads the user's reactions for a page of targets.
	GetForTargets(ctx context.Context, userID uint, targetType string, targetIDs []uint) (map[uint]*models.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) WithTx(tx *gorm.DB) ReactionRepository {
	return &reactionRepository{db: tx}
}

func (r *reactionRepository) GetForUpdate(ctx context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error) {
	query := r.db.WithContext(ctx)
	// sqlite (used by handler tests) has no row locks; its single-writer
	// model already serializes same-key toggles.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var reaction models.Reaction
	err := query.
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		First(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) CreateBlank(ctx context.Context, userID uint, targetType string, targetID uint) error {
	// INSERT ... ON CONFLICT DO NOTHING: a concurrent first-insert race
	// leaves exactly one row either way; the caller re-reads under lock.
	err := r.db.WithContext(ctx).Exec(`
INSERT INTO reactions (user_id, target_type, target_id, liked, disliked, bookmarked, created_at, updated_at)
VALUES (?, ?, ?, FALSE, FALSE, FALSE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT (target_type, target_id, user_id) DO NOTHING`,
		userID, targetType, targetID,
	).Error
	if IsUniqueViolation(err) {
		return models.NewConflictError("Reaction already exists", err)
	}
	return err
}

func (r *reactionRepository) Save(ctx context.Context, reaction *models.Reaction) error {
	return r.db.WithContext(ctx).Save(reaction).Error
}

func (r *reactionRepository) Get(ctx context.Context, userID uint, targetType string, targetID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		First(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) GetForTargets(ctx context.Context, userID uint, targetType string, targetIDs []uint) (map[uint]*models.Reaction, error) {
	result := make(map[uint]*models.Reaction, len(targetIDs))
	if userID == 0 || len(targetIDs) == 0 {
		return result, nil
	}
	var rows []models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, targetType, targetIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].TargetID] = &rows[i]
	}
	return result, nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (duplicate-key race on first insert).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
