package server

import (
	"strings"

	"portfolio/internal/middleware"
	"portfolio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondWithError writes err with the status its code maps to. Details of
// server errors are only exposed outside production.
func (s *Server) respondWithError(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			"path", c.Path(), "status", status, "error", err.Error())
	}
	return models.RespondWithError(c, status, err, !s.config.IsProduction())
}

// isJSON reports whether the request declares a JSON body. Parameters such as
// charset are allowed.
func isJSON(c *fiber.Ctx) bool {
	ct := strings.ToLower(strings.TrimSpace(c.Get(fiber.HeaderContentType)))
	mediaType, _, _ := strings.Cut(ct, ";")
	return strings.TrimSpace(mediaType) == fiber.MIMEApplicationJSON
}

// parseJSON decodes the body into dst. An empty body leaves dst untouched.
func parseJSON(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
