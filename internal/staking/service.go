package staking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ZILLABB/cryptonested-sub001/pkg/errors"
	"github.com/ZILLABB/cryptonested-sub001/pkg/events"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
	"github.com/ZILLABB/cryptonested-sub001/pkg/metrics"
)

// Service owns the position lifecycle: active until withdrawn, withdrawn
// terminal. Reward math lives in accrueLocked and nowhere else.
type Service struct {
	store     Store
	publisher events.Publisher
	now       func() time.Time

	// positionLocks serializes accrual and withdrawal per position so a
	// withdrawal cannot race past its own terminal-state check and an
	// accrual cannot double-count an interval.
	positionLocks sync.Map // positionID -> *sync.Mutex
}

func NewService(store Store, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock overrides the clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) lockPosition(positionID string) func() {
	v, _ := s.positionLocks.LoadOrStore(positionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ListPlans returns the plan catalog.
func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	plans, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	return plans, nil
}

// GetPlan returns one plan or ErrNotFound.
func (s *Service) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if plan == nil {
		return nil, apperrors.ErrNotFound.WithDetails(fmt.Sprintf("staking plan %s", planID))
	}
	return plan, nil
}

// Stake validates the request against the plan and opens a position. Locked
// plans get an end timestamp of start plus the lock period; flexible plans
// have none.
func (s *Service) Stake(ctx context.Context, userID, planID, coinID string, amount float64) (*Position, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		metrics.RecordStakingOperation("stake", "error")
		return nil, err
	}

	if amount < plan.MinAmount {
		metrics.RecordStakingOperation("stake", "rejected")
		return nil, apperrors.ErrValidation.WithDetails(
			fmt.Sprintf("amount %.2f is below the plan minimum %.2f", amount, plan.MinAmount))
	}
	if plan.MaxAmount > 0 && amount > plan.MaxAmount {
		metrics.RecordStakingOperation("stake", "rejected")
		return nil, apperrors.ErrValidation.WithDetails(
			fmt.Sprintf("amount %.2f exceeds the plan maximum %.2f", amount, plan.MaxAmount))
	}
	if !plan.Supports(coinID) {
		metrics.RecordStakingOperation("stake", "rejected")
		return nil, apperrors.ErrValidation.WithDetails(
			fmt.Sprintf("coin %s is not supported by plan %s", coinID, plan.ID))
	}

	now := s.now()
	position := &Position{
		ID:            uuid.New().String(),
		UserID:        userID,
		PlanID:        plan.ID,
		CoinID:        coinID,
		Amount:        amount,
		Status:        StatusActive,
		StartedAt:     now,
		LastAccrualAt: now,
	}
	if plan.LockPeriodDays > 0 {
		ends := now.Add(time.Duration(plan.LockPeriodDays) * 24 * time.Hour)
		position.EndsAt = &ends
	}

	if err := s.store.InsertPosition(ctx, position); err != nil {
		metrics.RecordStakingOperation("stake", "error")
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	s.publish(ctx, events.NewEvent("staking.position.created.v1", events.PositionCreatedPayload{
		PositionID: position.ID,
		UserID:     position.UserID,
		PlanID:     position.PlanID,
		CoinID:     position.CoinID,
		Amount:     position.Amount,
		APY:        plan.APY,
		StartedAt:  position.StartedAt,
		EndsAt:     position.EndsAt,
	}))

	metrics.RecordStakingOperation("stake", "ok")
	return position, nil
}

// Accrue advances the position's reward checkpoint to now and credits the
// interval's reward. Zero elapsed time is a valid no-op. Accruing a
// withdrawn position is a no-op as well, never an error.
func (s *Service) Accrue(ctx context.Context, positionID string) (*Position, error) {
	unlock := s.lockPosition(positionID)
	defer unlock()

	position, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if position == nil {
		return nil, apperrors.ErrNotFound.WithDetails(fmt.Sprintf("staking position %s", positionID))
	}
	if position.Status != StatusActive {
		return position, nil
	}

	if _, err := s.accrueLocked(ctx, position); err != nil {
		return nil, err
	}
	return position, nil
}

// AccrueAll runs one accrual pass over every active position. One failing
// position does not stop the sweep.
func (s *Service) AccrueAll(ctx context.Context) error {
	positions, err := s.store.ListActivePositions(ctx)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	for _, p := range positions {
		if _, err := s.Accrue(ctx, p.ID); err != nil {
			logger.Warn().Err(err).Str("position_id", p.ID).Msg("Reward accrual failed for position")
		}
	}
	return nil
}

// accrueLocked credits the reward earned since the last checkpoint. The
// caller must hold the position lock and have verified active status.
// Mutates position in place and persists it.
func (s *Service) accrueLocked(ctx context.Context, position *Position) (float64, error) {
	now := s.now()
	elapsed := now.Sub(position.LastAccrualAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	plan, err := s.GetPlan(ctx, position.PlanID)
	if err != nil {
		return 0, err
	}

	reward := position.Amount * (plan.APY / 100) * (elapsed / secondsPerYear)
	position.AccruedReward += reward
	position.LastAccrualAt = now

	if reward > 0 {
		entry := &Reward{
			ID:         uuid.New().String(),
			PositionID: position.ID,
			UserID:     position.UserID,
			Amount:     reward,
			Basis:      fmt.Sprintf("%.8f x %.2f%% x %.0fs/%ds", position.Amount, plan.APY, elapsed, secondsPerYear),
			AccruedAt:  now,
		}
		if err := s.store.InsertReward(ctx, entry); err != nil {
			return 0, apperrors.ErrUpstreamUnavailable.WithError(err)
		}
	}
	if err := s.store.UpdatePosition(ctx, position); err != nil {
		return 0, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	if reward > 0 {
		s.publish(ctx, events.NewEvent("staking.reward.accrued.v1", events.RewardAccruedPayload{
			PositionID: position.ID,
			UserID:     position.UserID,
			Amount:     reward,
			Total:      position.AccruedReward,
			AccruedAt:  now,
		}))
	}

	metrics.RecordStakingOperation("accrue", "ok")
	return reward, nil
}

// CanWithdraw reports whether the position is withdrawable without penalty
// or the caller has asked for an early withdrawal.
func (s *Service) CanWithdraw(position *Position, plan *Plan, early bool) bool {
	if plan.LockPeriodDays == 0 {
		return true
	}
	if position.EndsAt != nil && !s.now().Before(*position.EndsAt) {
		return true
	}
	return early
}

// Withdraw closes the position. The final accrual runs first so the payout
// includes rewards up to the withdrawal instant. An early withdrawal of a
// still-locked position forfeits a fixed fraction of principal plus reward;
// an unlocked withdrawal pays out in full. The transition is terminal.
func (s *Service) Withdraw(ctx context.Context, userID, positionID string, early bool) (*WithdrawResult, error) {
	unlock := s.lockPosition(positionID)
	defer unlock()

	position, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		metrics.RecordStakingOperation("withdraw", "error")
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if position == nil || position.UserID != userID {
		metrics.RecordStakingOperation("withdraw", "rejected")
		return nil, apperrors.ErrNotFound.WithDetails(fmt.Sprintf("staking position %s", positionID))
	}
	if position.Status == StatusWithdrawn {
		metrics.RecordStakingOperation("withdraw", "rejected")
		return nil, apperrors.ErrInvalidState.WithDetails("position is already withdrawn")
	}

	plan, err := s.GetPlan(ctx, position.PlanID)
	if err != nil {
		metrics.RecordStakingOperation("withdraw", "error")
		return nil, err
	}

	now := s.now()
	stillLocked := plan.LockPeriodDays > 0 && position.EndsAt != nil && now.Before(*position.EndsAt)
	if stillLocked && !early {
		metrics.RecordStakingOperation("withdraw", "rejected")
		remaining := position.EndsAt.Sub(now).Round(time.Minute)
		return nil, apperrors.ErrLocked.WithDetails(fmt.Sprintf("position unlocks in %s", remaining))
	}

	if _, err := s.accrueLocked(ctx, position); err != nil {
		metrics.RecordStakingOperation("withdraw", "error")
		return nil, err
	}

	gross := position.Amount + position.AccruedReward
	var penalty float64
	if stillLocked {
		penalty = gross * earlyWithdrawalPenalty
	}

	position.Status = StatusWithdrawn
	position.WithdrawnAt = &now
	if err := s.store.UpdatePosition(ctx, position); err != nil {
		metrics.RecordStakingOperation("withdraw", "error")
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	result := &WithdrawResult{
		Position: position,
		Reward:   position.AccruedReward,
		Penalty:  penalty,
		Payout:   gross - penalty,
		Early:    stillLocked,
	}

	s.publish(ctx, events.NewEvent("staking.position.withdrawn.v1", events.PositionWithdrawnPayload{
		PositionID:  position.ID,
		UserID:      position.UserID,
		Amount:      position.Amount,
		Reward:      result.Reward,
		Penalty:     result.Penalty,
		Payout:      result.Payout,
		Early:       result.Early,
		WithdrawnAt: now,
	}))

	metrics.RecordStakingOperation("withdraw", "ok")
	return result, nil
}

// Positions returns the user's positions joined with their plans, newest
// first.
func (s *Service) Positions(ctx context.Context, userID string) ([]PositionView, error) {
	positions, err := s.store.ListPositions(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		view := PositionView{Position: p}
		if plan, err := s.store.GetPlan(ctx, p.PlanID); err == nil && plan != nil {
			view.PlanName = plan.Name
			view.APY = plan.APY
			view.LockPeriodDays = plan.LockPeriodDays
			view.Withdrawable = p.Status == StatusActive && s.CanWithdraw(&p, plan, false)
		}
		views = append(views, view)
	}
	return views, nil
}

// Summary aggregates the user's active positions. All figures are zero when
// no position is active; average APY in particular never divides by zero.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	positions, err := s.store.ListPositions(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	summary := &Summary{}
	var apySum float64
	for _, p := range positions {
		if p.Status != StatusActive {
			continue
		}
		plan, err := s.store.GetPlan(ctx, p.PlanID)
		if err != nil || plan == nil {
			logger.Warn().Str("plan_id", p.PlanID).Str("position_id", p.ID).Msg("Plan missing for active position")
			continue
		}

		summary.TotalStaked += p.Amount
		summary.TotalRewards += p.AccruedReward
		summary.ActivePositions++
		summary.ProjectedAnnualIncome += p.Amount * plan.APY / 100
		apySum += plan.APY
	}
	if summary.ActivePositions > 0 {
		summary.AverageAPY = apySum / float64(summary.ActivePositions)
	}
	return summary, nil
}

func (s *Service) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, events.TopicStaking, event); err != nil {
		logger.Warn().Err(err).Str("event_type", event.EventType).Msg("Failed to publish staking event")
	}
}
