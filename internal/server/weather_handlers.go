package server

import (
	"strconv"

	"portfolio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetWeather handles GET /api/weather?lat=&lon=
func (s *Server) GetWeather(c *fiber.Ctx) error {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil {
		return s.respondWithError(c, models.NewValidationError("Invalid coordinates"))
	}

	report, err := s.weatherService.Current(c.UserContext(), lat, lon)
	if err != nil {
		return s.respondWithError(c, err)
	}

	return c.JSON(report)
}
