package portfolio

import "time"

// Transaction types. Transfers move coins between portfolios without
// affecting cost basis.
const (
	TxBuy      = "buy"
	TxSell     = "sell"
	TxTransfer = "transfer"
)

// Holding is one coin position inside a user's portfolio. AvgBuyPrice is
// the weighted average purchase price across all buys.
type Holding struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PortfolioID string    `json:"portfolio_id,omitempty"`
	CoinID      string    `json:"coin_id"`
	Quantity    float64   `json:"quantity"`
	AvgBuyPrice float64   `json:"avg_buy_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transaction is an immutable ledger entry. Never mutated after insert.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PortfolioID string    `json:"portfolio_id,omitempty"`
	CoinID      string    `json:"coin_id"`
	Type        string    `json:"type"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Fee         float64   `json:"fee,omitempty"`
	Note        string    `json:"note,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// ValuedHolding is a holding joined with a current price. Name, Symbol and
// Image come from the market snapshot when available.
type ValuedHolding struct {
	Holding
	Name         string  `json:"name,omitempty"`
	Symbol       string  `json:"symbol,omitempty"`
	Image        string  `json:"image,omitempty"`
	CurrentPrice float64 `json:"current_price"`
	Value        float64 `json:"value"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	ProfitPct    float64 `json:"profit_pct"`
}

// Summary aggregates a valued holding set.
type Summary struct {
	TotalValue       float64 `json:"total_value"`
	TotalCost        float64 `json:"total_cost"`
	TotalProfit      float64 `json:"total_profit"`
	ProfitPercentage float64 `json:"profit_percentage"`
	HoldingsCount    int     `json:"holdings_count"`
}

// AssetAllocation is derived on every valuation pass and never persisted.
type AssetAllocation struct {
	CoinID     string  `json:"coin_id"`
	Name       string  `json:"name,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Snapshot is one point of the valuation time series. Snapshots back the
// performance figures instead of synthetic change numbers.
type Snapshot struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TotalValue float64   `json:"total_value"`
	TotalCost  float64   `json:"total_cost"`
	Trigger    string    `json:"trigger"` // scheduled, manual
	TakenAt    time.Time `json:"taken_at"`
}

// PerformanceWindow is the value change over one lookback period.
type PerformanceWindow struct {
	Period    string  `json:"period"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	// Sampled is false when no snapshot old enough exists yet.
	Sampled bool `json:"sampled"`
}

// Performance reports value changes across the standard lookback windows.
type Performance struct {
	CurrentValue float64             `json:"current_value"`
	Windows      []PerformanceWindow `json:"windows"`
}
