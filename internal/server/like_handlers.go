package server

import (
	"portfolio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/posts/:postId/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req models.LikeRequest
	if err := parseJSON(c, &req); err != nil {
		return s.respondWithError(c, err)
	}

	resp, err := s.likeService.Toggle(c.UserContext(), c.Params("postId"), req.Fingerprint)
	if err != nil {
		return s.respondWithError(c, err)
	}

	return c.JSON(resp)
}

// GetLikes handles GET /api/posts/:postId/likes?fingerprint=
func (s *Server) GetLikes(c *fiber.Ctx) error {
	resp, err := s.likeService.Status(c.UserContext(), c.Params("postId"), c.Query("fingerprint"))
	if err != nil {
		return s.respondWithError(c, err)
	}

	return c.JSON(resp)
}
