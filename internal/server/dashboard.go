package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ZILLABB/cryptonested-sub001/pkg/response"
)

// GET /api/v1/dashboard
func (s *Server) getDashboard(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	d, err := s.aggregator.Dashboard(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, d)
}
