package staking

import "context"

// Store is the persistence surface the staking service depends on.
// Implementations: Postgres (production) and MemoryStore (tests,
// no-database development mode).
type Store interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, planID string) (*Plan, error)

	InsertPosition(ctx context.Context, p *Position) error
	GetPosition(ctx context.Context, positionID string) (*Position, error)
	// ListPositions returns all of a user's positions, newest first.
	ListPositions(ctx context.Context, userID string) ([]Position, error)
	// ListActivePositions feeds the scheduled accrual sweep.
	ListActivePositions(ctx context.Context) ([]Position, error)
	UpdatePosition(ctx context.Context, p *Position) error

	InsertReward(ctx context.Context, r *Reward) error
	ListRewards(ctx context.Context, positionID string) ([]Reward, error)
}
