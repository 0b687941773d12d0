package server

import (
	"portfolio/internal/models"
	"portfolio/internal/service"
	"portfolio/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SubmitContact handles POST /api/contact
func (s *Server) SubmitContact(c *fiber.Ctx) error {
	if !isJSON(c) {
		return s.respondWithError(c, models.NewUnsupportedMediaError())
	}

	var req models.ContactRequest
	if err := parseJSON(c, &req); err != nil {
		return s.respondWithError(c, err)
	}

	resp, err := s.contactService.Submit(c.UserContext(), service.ContactInput{
		Request:   req,
		ClientIP:  validation.ClientIP(func(key string) string { return c.Get(key) }),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return s.respondWithError(c, err)
	}

	return c.JSON(resp)
}
