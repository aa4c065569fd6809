package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ZILLABB/cryptonested-sub001/internal/portfolio"
	apperrors "github.com/ZILLABB/cryptonested-sub001/pkg/errors"
	"github.com/ZILLABB/cryptonested-sub001/pkg/response"
)

// GET /api/v1/portfolio/holdings
func (s *Server) getHoldings(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	holdings, summary, err := s.portfolio.Holdings(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, fiber.Map{
		"holdings": holdings,
		"summary":  summary,
	})
}

// GET /api/v1/portfolio/allocation
func (s *Server) getAllocation(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	allocation, err := s.portfolio.Allocation(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, allocation)
}

// GET /api/v1/portfolio/performance
func (s *Server) getPerformance(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	perf, err := s.portfolio.Performance(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, perf)
}

// GET /api/v1/portfolio/transactions?limit=50
func (s *Server) getTransactions(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	txs, err := s.portfolio.Transactions(c.Context(), userID, c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	return response.Success(c, txs)
}

// POST /api/v1/portfolio/transactions
func (s *Server) recordTransaction(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req portfolio.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithDetails("malformed request body")
	}
	req.UserID = userID

	tx, err := s.portfolio.RecordTransaction(c.Context(), &req)
	if err != nil {
		return err
	}

	// The composite is stale the moment a write lands.
	s.aggregator.Invalidate(userID)
	return response.Created(c, tx)
}

// POST /api/v1/portfolio/snapshots
func (s *Server) takeSnapshot(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	snapshot, err := s.portfolio.SnapshotNow(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Created(c, snapshot)
}
