package service

import (
	"context"
	"errors"

	"agora/internal/cache"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"

	"gorm.io/gorm"
)

// ReactionService applies reaction toggles atomically: the reaction record
// flip and all resulting counter deltas commit in one transaction, so a
// toggle never reports success with counters left behind.
type ReactionService struct {
	db           *gorm.DB
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	statsRepo    repository.StatsRepository
}

type ToggleInput struct {
	UserID     uint
	TargetType string
	TargetID   uint
	Kind       string
}

// ToggleResult is the action label plus the refreshed counter snapshot.
type ToggleResult struct {
	Action   string              `json:"action"`
	Counters *models.TargetStats `json:"counters"`
}

func NewReactionService(
	db *gorm.DB,
	reactionRepo repository.ReactionRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	statsRepo repository.StatsRepository,
) *ReactionService {
	return &ReactionService{
		db:           db,
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		statsRepo:    statsRepo,
	}
}

// Toggle flips the user's reaction of the given kind on the target.
// Turning on a like forces any dislike off in the same transaction (and
// vice versa), with a compensating counter delta for the forced field.
func (s *ReactionService) Toggle(ctx context.Context, in ToggleInput) (*ToggleResult, error) {
	if !models.ValidTargetType(in.TargetType) {
		return nil, models.NewValidationError("Invalid target_type")
	}
	if !models.ValidReactionKind(in.Kind) {
		return nil, models.NewValidationError("Invalid reaction kind")
	}
	if in.Kind == models.KindBookmark && in.TargetType != models.TargetPost {
		return nil, models.NewInvalidStateError("Only posts can be bookmarked")
	}

	if err := s.ensureActiveTarget(ctx, in.TargetType, in.TargetID); err != nil {
		return nil, err
	}

	var action string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reactions := s.reactionRepo.WithTx(tx)

		reaction, err := reactions.GetForUpdate(ctx, in.UserID, in.TargetType, in.TargetID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// First reaction for this key. A concurrent first-insert loser
			// gets CONFLICT from the insert; the follow-up locked read is
			// the single internal retry either way.
			if createErr := reactions.CreateBlank(ctx, in.UserID, in.TargetType, in.TargetID); createErr != nil {
				if models.ErrorCode(createErr) != models.CodeConflict {
					return createErr
				}
			}
			reaction, err = reactions.GetForUpdate(ctx, in.UserID, in.TargetType, in.TargetID)
		}
		if err != nil {
			return err
		}

		var delta models.StatsDelta
		action = applyToggle(reaction, in.Kind, &delta)

		if err := reactions.Save(ctx, reaction); err != nil {
			return err
		}
		return s.statsRepo.WithTx(tx).Increment(ctx, in.TargetType, in.TargetID, delta)
	})
	if err != nil {
		if !isAppError(err) {
			return nil, models.NewStorageUnavailableError(err)
		}
		return nil, err
	}

	if in.TargetType == models.TargetPost {
		cache.InvalidatePost(ctx, in.TargetID)
		cache.InvalidatePostsList(ctx)
	}
	observability.ReactionToggles.WithLabelValues(in.TargetType, action).Inc()

	counters, err := s.statsRepo.Get(ctx, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{Action: action, Counters: counters}, nil
}

// applyToggle mutates the reaction in place, accumulates counter deltas and
// returns the action label.
func applyToggle(reaction *models.Reaction, kind string, delta *models.StatsDelta) string {
	switch kind {
	case models.KindLike:
		reaction.Liked = !reaction.Liked
		if reaction.Liked {
			delta.Likes = 1
			if reaction.Disliked {
				// mutual exclusion: forcing the opposite field off emits a
				// compensating delta
				reaction.Disliked = false
				delta.Dislikes = -1
			}
			return "liked"
		}
		delta.Likes = -1
		return "unliked"

	case models.KindDislike:
		reaction.Disliked = !reaction.Disliked
		if reaction.Disliked {
			delta.Dislikes = 1
			if reaction.Liked {
				reaction.Liked = false
				delta.Likes = -1
			}
			return "disliked"
		}
		delta.Dislikes = -1
		return "undisliked"

	default: // models.KindBookmark
		reaction.Bookmarked = !reaction.Bookmarked
		if reaction.Bookmarked {
			delta.Bookmarks = 1
			return "bookmarked"
		}
		delta.Bookmarks = -1
		return "unbookmarked"
	}
}

func (s *ReactionService) ensureActiveTarget(ctx context.Context, targetType string, targetID uint) error {
	switch targetType {
	case models.TargetPost:
		post, err := s.postRepo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if post.Status != models.StatusActive {
			return models.NewNotFoundError("Post", targetID)
		}
	case models.TargetComment:
		comment, err := s.commentRepo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if comment.Status != models.StatusActive {
			return models.NewNotFoundError("Comment", targetID)
		}
	}
	return nil
}

func isAppError(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr)
}
