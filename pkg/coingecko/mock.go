package coingecko

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MockClient serves a fixed coin set for tests and API-key-less development.
// Figures are static so assertions stay deterministic.
type MockClient struct {
	coins []CoinMarket
}

func NewMockClient() *MockClient {
	return &MockClient{coins: mockCoins()}
}

func mockCoins() []CoinMarket {
	return []CoinMarket{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 64250.00, MarketCap: 1265000000000, MarketCapRank: 1, TotalVolume: 28500000000, High24h: 65100, Low24h: 63200, PriceChange24h: 820, PriceChangePercentage24h: 1.29, CirculatingSupply: 19700000},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 3150.00, MarketCap: 378000000000, MarketCapRank: 2, TotalVolume: 14200000000, High24h: 3210, Low24h: 3080, PriceChange24h: -42, PriceChangePercentage24h: -1.32, CirculatingSupply: 120200000},
		{ID: "tether", Symbol: "usdt", Name: "Tether", CurrentPrice: 1.00, MarketCap: 112000000000, MarketCapRank: 3, TotalVolume: 46000000000, High24h: 1.001, Low24h: 0.999, PriceChangePercentage24h: 0.01, CirculatingSupply: 112000000000},
		{ID: "binancecoin", Symbol: "bnb", Name: "BNB", CurrentPrice: 585.00, MarketCap: 86000000000, MarketCapRank: 4, TotalVolume: 1900000000, High24h: 595, Low24h: 571, PriceChange24h: 9.2, PriceChangePercentage24h: 1.60, CirculatingSupply: 147000000},
		{ID: "solana", Symbol: "sol", Name: "Solana", CurrentPrice: 148.50, MarketCap: 69000000000, MarketCapRank: 5, TotalVolume: 3100000000, High24h: 155.2, Low24h: 141.8, PriceChange24h: 6.1, PriceChangePercentage24h: 4.28, CirculatingSupply: 464000000},
		{ID: "ripple", Symbol: "xrp", Name: "XRP", CurrentPrice: 0.52, MarketCap: 29000000000, MarketCapRank: 6, TotalVolume: 1200000000, High24h: 0.54, Low24h: 0.50, PriceChange24h: -0.013, PriceChangePercentage24h: -2.44, CirculatingSupply: 55600000000},
		{ID: "cardano", Symbol: "ada", Name: "Cardano", CurrentPrice: 0.45, MarketCap: 16000000000, MarketCapRank: 7, TotalVolume: 420000000, High24h: 0.47, Low24h: 0.44, PriceChange24h: 0.008, PriceChangePercentage24h: 1.81, CirculatingSupply: 35600000000},
		{ID: "dogecoin", Symbol: "doge", Name: "Dogecoin", CurrentPrice: 0.125, MarketCap: 18000000000, MarketCapRank: 8, TotalVolume: 980000000, High24h: 0.132, Low24h: 0.118, PriceChange24h: 0.006, PriceChangePercentage24h: 5.04, CirculatingSupply: 144000000000},
		{ID: "polkadot", Symbol: "dot", Name: "Polkadot", CurrentPrice: 6.80, MarketCap: 9700000000, MarketCapRank: 9, TotalVolume: 210000000, High24h: 7.05, Low24h: 6.62, PriceChange24h: -0.24, PriceChangePercentage24h: -3.41, CirculatingSupply: 1430000000},
		{ID: "chainlink", Symbol: "link", Name: "Chainlink", CurrentPrice: 14.20, MarketCap: 8300000000, MarketCapRank: 10, TotalVolume: 390000000, High24h: 14.75, Low24h: 13.66, PriceChange24h: 0.38, PriceChangePercentage24h: 2.75, CirculatingSupply: 587000000},
	}
}

func (m *MockClient) CoinsMarkets(_ context.Context, _ string, limit int) ([]CoinMarket, error) {
	coins := make([]CoinMarket, len(m.coins))
	copy(coins, m.coins)
	sort.Slice(coins, func(i, j int) bool {
		return coins[i].MarketCap > coins[j].MarketCap
	})

	if limit > 0 && limit < len(coins) {
		coins = coins[:limit]
	}
	return coins, nil
}

func (m *MockClient) Global(_ context.Context) (*GlobalData, error) {
	var totalCap, totalVol, btcCap, ethCap float64
	for _, c := range m.coins {
		totalCap += c.MarketCap
		totalVol += c.TotalVolume
		switch c.ID {
		case "bitcoin":
			btcCap = c.MarketCap
		case "ethereum":
			ethCap = c.MarketCap
		}
	}

	return &GlobalData{
		ActiveCryptocurrencies: len(m.coins),
		TotalMarketCap:         map[string]float64{"usd": totalCap},
		TotalVolume:            map[string]float64{"usd": totalVol},
		MarketCapPercentage: map[string]float64{
			"btc": btcCap / totalCap * 100,
			"eth": ethCap / totalCap * 100,
		},
	}, nil
}

func (m *MockClient) CoinByID(_ context.Context, id string) (*CoinDetail, error) {
	for _, c := range m.coins {
		if c.ID == strings.ToLower(id) {
			return &CoinDetail{
				ID:     c.ID,
				Symbol: c.Symbol,
				Name:   c.Name,
				MarketData: Market{
					CurrentPrice:             map[string]float64{"usd": c.CurrentPrice},
					MarketCap:                map[string]float64{"usd": c.MarketCap},
					TotalVolume:              map[string]float64{"usd": c.TotalVolume},
					High24h:                  map[string]float64{"usd": c.High24h},
					Low24h:                   map[string]float64{"usd": c.Low24h},
					PriceChangePercentage24h: c.PriceChangePercentage24h,
					CirculatingSupply:        c.CirculatingSupply,
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("coin %q not found", id)
}
