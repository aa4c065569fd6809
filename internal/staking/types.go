package staking

import "time"

// Position statuses. withdrawn is terminal.
const (
	StatusActive    = "active"
	StatusWithdrawn = "withdrawn"
)

// secondsPerYear is the accrual denominator. 365-day year, no leap handling.
const secondsPerYear = 365 * 24 * 60 * 60

// earlyWithdrawalPenalty is the fraction of principal+reward forfeited when
// withdrawing a still-locked position early.
const earlyWithdrawalPenalty = 0.10

// Plan is a catalog entry. Plans are read-mostly; an administrative process
// outside this service maintains them.
type Plan struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	APY            float64  `json:"apy"`
	LockPeriodDays int      `json:"lock_period_days"` // 0 = flexible
	MinAmount      float64  `json:"min_amount"`
	MaxAmount      float64  `json:"max_amount,omitempty"` // 0 = no maximum
	SupportedCoins []string `json:"supported_coins"`
}

// Supports reports whether the plan accepts the given coin.
func (p *Plan) Supports(coinID string) bool {
	for _, c := range p.SupportedCoins {
		if c == coinID {
			return true
		}
	}
	return false
}

// Position is one staked amount under a plan. EndsAt is nil for flexible
// plans. A withdrawn position never accrues again and never changes amount.
type Position struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	PlanID        string     `json:"plan_id"`
	CoinID        string     `json:"coin_id"`
	Amount        float64    `json:"amount"`
	AccruedReward float64    `json:"accrued_reward"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	// LastAccrualAt is the accrual checkpoint; StartedAt until the first
	// accrual runs.
	LastAccrualAt time.Time  `json:"last_accrual_at"`
	WithdrawnAt   *time.Time `json:"withdrawn_at,omitempty"`
}

// Reward is an immutable accrual ledger entry. The sum of a position's
// reward entries equals its AccruedReward total.
type Reward struct {
	ID         string    `json:"id"`
	PositionID string    `json:"position_id"`
	UserID     string    `json:"user_id"`
	Amount     float64   `json:"amount"`
	Basis      string    `json:"basis"`
	AccruedAt  time.Time `json:"accrued_at"`
}

// PositionView joins a position with its plan for staking pages.
type PositionView struct {
	Position
	PlanName       string  `json:"plan_name"`
	APY            float64 `json:"apy"`
	LockPeriodDays int     `json:"lock_period_days"`
	Withdrawable   bool    `json:"withdrawable"`
}

// Summary aggregates a user's active positions.
type Summary struct {
	TotalStaked           float64 `json:"total_staked"`
	TotalRewards          float64 `json:"total_rewards"`
	ActivePositions       int     `json:"active_positions"`
	ProjectedAnnualIncome float64 `json:"projected_annual_income"`
	AverageAPY            float64 `json:"average_apy"`
}

// WithdrawResult reports the outcome of a withdrawal.
type WithdrawResult struct {
	Position *Position `json:"position"`
	Reward   float64   `json:"reward"`
	Penalty  float64   `json:"penalty"`
	Payout   float64   `json:"payout"`
	Early    bool      `json:"early"`
}
