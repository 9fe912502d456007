package server

import (
	"agora/internal/models"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest is the body for POST /api/posts.
type CreatePostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errInvalidBody(err))
	}

	post, err := s.contentService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: currentUserID(c),
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
//
// Query parameters: page, page_size, category, author_id, sort_by, search.
// One request returns the page items with joined counters and author, the
// viewer's reaction state (when authenticated), and full pagination info.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	result, err := s.contentService.ListContent(c.UserContext(), service.ListContentInput{
		Category: c.Query("category"),
		AuthorID: uint(c.QueryInt("author_id", 0)),
		SortBy:   c.Query("sort_by"),
		Search:   c.Query("search"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
		ViewerID: viewerID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.contentService.GetPost(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}

	// View bump is fire-and-forget: a failed bump never fails the read.
	s.contentService.BumpViewCount(c.UserContext(), models.TargetPost, id)

	return c.JSON(post)
}

// UpdatePostRequest is the body for PUT /api/posts/:id. Empty fields are
// left unchanged.
type UpdatePostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, errInvalidBody(err))
	}

	post, err := s.contentService.UpdatePost(c.UserContext(), id, currentUserID(c), service.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id (soft delete)
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.contentService.DeletePost(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HidePost handles POST /api/posts/:id/hide (moderation)
func (s *Server) HidePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.contentService.HidePost(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "hidden"})
}

// RecountTargetStats handles POST /api/admin/stats/:targetType/:targetId/recount
func (s *Server) RecountTargetStats(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "targetId")
	if err != nil {
		return nil
	}

	stats, err := s.contentService.RecountStats(c.UserContext(), c.Params("targetType"), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
