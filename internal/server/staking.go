package server

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/ZILLABB/cryptonested-sub001/pkg/errors"
	"github.com/ZILLABB/cryptonested-sub001/pkg/response"
)

// GET /api/v1/staking/plans
func (s *Server) getPlans(c *fiber.Ctx) error {
	plans, err := s.staking.ListPlans(c.Context())
	if err != nil {
		return err
	}
	return response.Success(c, plans)
}

// GET /api/v1/staking/plans/:id
func (s *Server) getPlan(c *fiber.Ctx) error {
	plan, err := s.staking.GetPlan(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, plan)
}

// GET /api/v1/staking/positions
func (s *Server) getPositions(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	positions, err := s.staking.Positions(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, positions)
}

type stakeRequest struct {
	PlanID string  `json:"plan_id"`
	CoinID string  `json:"coin_id"`
	Amount float64 `json:"amount"`
}

// POST /api/v1/staking/positions
func (s *Server) stake(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req stakeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithDetails("malformed request body")
	}

	position, err := s.staking.Stake(c.Context(), userID, req.PlanID, req.CoinID, req.Amount)
	if err != nil {
		return err
	}

	s.aggregator.Invalidate(userID)
	return response.Created(c, position)
}

type withdrawRequest struct {
	Early bool `json:"early"`
}

// POST /api/v1/staking/positions/:id/withdraw
func (s *Server) withdraw(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req withdrawRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.ErrValidation.WithDetails("malformed request body")
		}
	}

	result, err := s.staking.Withdraw(c.Context(), userID, c.Params("id"), req.Early)
	if err != nil {
		return err
	}

	s.aggregator.Invalidate(userID)
	return response.Success(c, result)
}

// GET /api/v1/staking/summary
func (s *Server) getStakingSummary(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	summary, err := s.staking.Summary(c.Context(), userID)
	if err != nil {
		return err
	}
	return response.Success(c, summary)
}
