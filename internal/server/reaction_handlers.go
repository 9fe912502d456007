package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// TogglePostReaction handles POST /api/posts/:id/reactions/:kind
//
// Toggling is the only write operation on reactions: the same call turns a
// reaction on or off, and like/dislike are mutually exclusive.
func (s *Server) TogglePostReaction(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.TargetPost)
}

// ToggleCommentReaction handles POST /api/comments/:id/reactions/:kind
func (s *Server) ToggleCommentReaction(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.TargetComment)
}

func (s *Server) toggleReaction(c *fiber.Ctx, targetType string) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.reactionService.Toggle(c.UserContext(), service.ToggleInput{
		UserID:     currentUserID(c),
		TargetType: targetType,
		TargetID:   id,
		Kind:       c.Params("kind"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
