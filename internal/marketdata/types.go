package marketdata

// CoinSnapshot is the view of one coin handed to callers. It is always
// structurally valid; the gateway never returns an error on read paths.
type CoinSnapshot struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Image        string  `json:"image,omitempty"`
	Price        float64 `json:"price"`
	MarketCap    float64 `json:"market_cap"`
	Rank         int     `json:"rank"`
	Volume24h    float64 `json:"volume_24h"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	Change24h    float64 `json:"change_24h"`
	ChangePct24h float64 `json:"change_pct_24h"`
}

// MarketSummary aggregates the whole market.
type MarketSummary struct {
	TotalMarketCap float64 `json:"total_market_cap"`
	TotalVolume    float64 `json:"total_volume"`
	BTCDominance   float64 `json:"btc_dominance"`
	ETHDominance   float64 `json:"eth_dominance"`
}

// GainersLosers holds the head and tail of the top-100 set ordered by 24h
// percentage change.
type GainersLosers struct {
	Gainers []CoinSnapshot `json:"gainers"`
	Losers  []CoinSnapshot `json:"losers"`
}

// Result is the explicit two-branch return of every gateway read: either
// live upstream data or degraded data, with the reason for degradation.
// Callers that don't care can just use Data; tests and consumers that
// surface staleness check Fallback.
type Result[T any] struct {
	Data     T      `json:"data"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"fallback_reason,omitempty"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

func degraded[T any](data T, reason string) Result[T] {
	return Result[T]{Data: data, Fallback: true, Reason: reason}
}
