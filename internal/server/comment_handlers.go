package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateCommentRequest is the body for POST /api/posts/:id/comments.
type CreateCommentRequest struct {
	Content         string `json:"content"`
	ParentCommentID *uint  `json:"parent_comment_id"`
}

// CreateComment handles POST /api/posts/:id/comments
//
// An optional Idempotency-Key header (UUID) suppresses duplicate creation
// on client retries.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errInvalidBody(err))
	}

	idemKey := c.Get("Idempotency-Key")
	if idemKey != "" {
		if _, err := uuid.Parse(idemKey); err != nil {
			return respondError(c, models.NewValidationError("Idempotency-Key must be a UUID"))
		}
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		PostID:          postID,
		AuthorID:        currentUserID(c),
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
		IdempotencyKey:  idemKey,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/posts/:id/comments
//
// Query parameters: page, page_size, include_replies. Top-level comments
// page oldest first; each carries a bounded preview of its replies when
// include_replies is set.
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.commentService.ListComments(c.UserContext(), service.ListCommentsInput{
		PostID:         postID,
		Page:           c.QueryInt("page", 1),
		PageSize:       c.QueryInt("page_size", 0),
		IncludeReplies: c.QueryBool("include_replies", true),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// DeleteComment handles DELETE /api/comments/:id (soft delete)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.SoftDelete(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
