package events

import "time"

// TransactionRecordedPayload is the payload for transaction.recorded.v1.
type TransactionRecordedPayload struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	PortfolioID   string    `json:"portfolio_id,omitempty"`
	CoinID        string    `json:"coin_id"`
	Type          string    `json:"type"` // buy, sell, transfer
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Fee           float64   `json:"fee,omitempty"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// PositionCreatedPayload is the payload for staking.position.created.v1.
type PositionCreatedPayload struct {
	PositionID string     `json:"position_id"`
	UserID     string     `json:"user_id"`
	PlanID     string     `json:"plan_id"`
	CoinID     string     `json:"coin_id"`
	Amount     float64    `json:"amount"`
	APY        float64    `json:"apy"`
	StartedAt  time.Time  `json:"started_at"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
}

// PositionWithdrawnPayload is the payload for staking.position.withdrawn.v1.
type PositionWithdrawnPayload struct {
	PositionID  string    `json:"position_id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Reward      float64   `json:"reward"`
	Penalty     float64   `json:"penalty"`
	Payout      float64   `json:"payout"`
	Early       bool      `json:"early"`
	WithdrawnAt time.Time `json:"withdrawn_at"`
}

// RewardAccruedPayload is the payload for staking.reward.accrued.v1.
type RewardAccruedPayload struct {
	PositionID string    `json:"position_id"`
	UserID     string    `json:"user_id"`
	Amount     float64   `json:"amount"`
	Total      float64   `json:"total"`
	AccruedAt  time.Time `json:"accrued_at"`
}
