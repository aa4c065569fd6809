package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ZILLABB/cryptonested-sub001/pkg/response"
)

// GET /api/v1/market/top?limit=10&currency=usd
func (s *Server) getTopCoins(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	currency := c.Query("currency", "usd")
	return response.Success(c, s.market.TopCoins(c.Context(), limit, currency))
}

// GET /api/v1/market/summary
func (s *Server) getMarketSummary(c *fiber.Ctx) error {
	return response.Success(c, s.market.MarketSummary(c.Context()))
}

// GET /api/v1/market/movers?limit=5
func (s *Server) getMovers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 5)
	return response.Success(c, s.market.GainersLosers(c.Context(), limit))
}

// GET /api/v1/market/coins/:id
func (s *Server) getCoin(c *fiber.Ctx) error {
	return response.Success(c, s.market.Coin(c.Context(), c.Params("id")))
}
