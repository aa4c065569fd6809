package staking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store over a pgx pool. Schema: migrations/schema.sql.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, apy, lock_period_days, min_amount, COALESCE(max_amount, 0), supported_coins
		FROM staking_plans
		ORDER BY lock_period_days ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		var plan Plan
		err := rows.Scan(
			&plan.ID, &plan.Name, &plan.APY, &plan.LockPeriodDays,
			&plan.MinAmount, &plan.MaxAmount, &plan.SupportedCoins,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (p *Postgres) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var plan Plan
	err := p.db.QueryRow(ctx, `
		SELECT id, name, apy, lock_period_days, min_amount, COALESCE(max_amount, 0), supported_coins
		FROM staking_plans
		WHERE id = $1
	`, planID).Scan(
		&plan.ID, &plan.Name, &plan.APY, &plan.LockPeriodDays,
		&plan.MinAmount, &plan.MaxAmount, &plan.SupportedCoins,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (p *Postgres) InsertPosition(ctx context.Context, pos *Position) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO staking_positions
			(id, user_id, plan_id, coin_id, amount, accrued_reward, status, started_at, ends_at, last_accrual_at, withdrawn_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, pos.ID, pos.UserID, pos.PlanID, pos.CoinID, pos.Amount, pos.AccruedReward,
		pos.Status, pos.StartedAt, pos.EndsAt, pos.LastAccrualAt, pos.WithdrawnAt)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

func (p *Postgres) GetPosition(ctx context.Context, positionID string) (*Position, error) {
	var pos Position
	err := p.db.QueryRow(ctx, `
		SELECT id, user_id, plan_id, coin_id, amount, accrued_reward, status, started_at, ends_at, last_accrual_at, withdrawn_at
		FROM staking_positions
		WHERE id = $1
	`, positionID).Scan(
		&pos.ID, &pos.UserID, &pos.PlanID, &pos.CoinID, &pos.Amount, &pos.AccruedReward,
		&pos.Status, &pos.StartedAt, &pos.EndsAt, &pos.LastAccrualAt, &pos.WithdrawnAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &pos, nil
}

func (p *Postgres) ListPositions(ctx context.Context, userID string) ([]Position, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, plan_id, coin_id, amount, accrued_reward, status, started_at, ends_at, last_accrual_at, withdrawn_at
		FROM staking_positions
		WHERE user_id = $1
		ORDER BY started_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var pos Position
		err := rows.Scan(
			&pos.ID, &pos.UserID, &pos.PlanID, &pos.CoinID, &pos.Amount, &pos.AccruedReward,
			&pos.Status, &pos.StartedAt, &pos.EndsAt, &pos.LastAccrualAt, &pos.WithdrawnAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func (p *Postgres) ListActivePositions(ctx context.Context) ([]Position, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, plan_id, coin_id, amount, accrued_reward, status, started_at, ends_at, last_accrual_at, withdrawn_at
		FROM staking_positions
		WHERE status = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var pos Position
		err := rows.Scan(
			&pos.ID, &pos.UserID, &pos.PlanID, &pos.CoinID, &pos.Amount, &pos.AccruedReward,
			&pos.Status, &pos.StartedAt, &pos.EndsAt, &pos.LastAccrualAt, &pos.WithdrawnAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func (p *Postgres) UpdatePosition(ctx context.Context, pos *Position) error {
	_, err := p.db.Exec(ctx, `
		UPDATE staking_positions
		SET amount = $2, accrued_reward = $3, status = $4, last_accrual_at = $5, withdrawn_at = $6
		WHERE id = $1
	`, pos.ID, pos.Amount, pos.AccruedReward, pos.Status, pos.LastAccrualAt, pos.WithdrawnAt)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}

func (p *Postgres) InsertReward(ctx context.Context, r *Reward) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO staking_rewards (id, position_id, user_id, amount, basis, accrued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.PositionID, r.UserID, r.Amount, r.Basis, r.AccruedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reward: %w", err)
	}
	return nil
}

func (p *Postgres) ListRewards(ctx context.Context, positionID string) ([]Reward, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, position_id, user_id, amount, basis, accrued_at
		FROM staking_rewards
		WHERE position_id = $1
		ORDER BY accrued_at ASC
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []Reward
	for rows.Next() {
		var r Reward
		if err := rows.Scan(&r.ID, &r.PositionID, &r.UserID, &r.Amount, &r.Basis, &r.AccruedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, r)
	}
	return rewards, rows.Err()
}

var _ Store = (*Postgres)(nil)
