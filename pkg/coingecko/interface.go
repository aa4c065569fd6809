package coingecko

import "context"

// Provider is the market-data surface the gateway consumes.
type Provider interface {
	CoinsMarkets(ctx context.Context, currency string, limit int) ([]CoinMarket, error)
	Global(ctx context.Context) (*GlobalData, error)
	CoinByID(ctx context.Context, id string) (*CoinDetail, error)
}

var _ Provider = (*Client)(nil)
var _ Provider = (*MockClient)(nil)
