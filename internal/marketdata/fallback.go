package marketdata

// Hardcoded snapshots served when the upstream API is unreachable or rate
// limited and no last-known-good copy exists. The dashboard must render
// something sensible rather than an error state, so the set covers the
// majors with figures that are plausible but clearly static.
func fallbackCoins() []CoinSnapshot {
	return []CoinSnapshot{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Price: 60000, MarketCap: 1180000000000, Rank: 1, Volume24h: 25000000000, High24h: 61000, Low24h: 59000, Change24h: 500, ChangePct24h: 0.84},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", Price: 3000, MarketCap: 360000000000, Rank: 2, Volume24h: 12000000000, High24h: 3080, Low24h: 2950, Change24h: 25, ChangePct24h: 0.84},
		{ID: "tether", Symbol: "usdt", Name: "Tether", Price: 1, MarketCap: 110000000000, Rank: 3, Volume24h: 40000000000, High24h: 1.001, Low24h: 0.999},
		{ID: "binancecoin", Symbol: "bnb", Name: "BNB", Price: 570, MarketCap: 84000000000, Rank: 4, Volume24h: 1700000000, High24h: 580, Low24h: 560, Change24h: 4, ChangePct24h: 0.71},
		{ID: "solana", Symbol: "sol", Name: "Solana", Price: 140, MarketCap: 65000000000, Rank: 5, Volume24h: 2800000000, High24h: 145, Low24h: 136, Change24h: 2.8, ChangePct24h: 2.04},
		{ID: "ripple", Symbol: "xrp", Name: "XRP", Price: 0.50, MarketCap: 28000000000, Rank: 6, Volume24h: 1100000000, High24h: 0.52, Low24h: 0.49, Change24h: -0.01, ChangePct24h: -1.96},
		{ID: "cardano", Symbol: "ada", Name: "Cardano", Price: 0.44, MarketCap: 15500000000, Rank: 7, Volume24h: 400000000, High24h: 0.46, Low24h: 0.43, Change24h: 0.005, ChangePct24h: 1.15},
		{ID: "dogecoin", Symbol: "doge", Name: "Dogecoin", Price: 0.12, MarketCap: 17300000000, Rank: 8, Volume24h: 900000000, High24h: 0.127, Low24h: 0.114, Change24h: 0.004, ChangePct24h: 3.45},
		{ID: "polkadot", Symbol: "dot", Name: "Polkadot", Price: 6.50, MarketCap: 9300000000, Rank: 9, Volume24h: 190000000, High24h: 6.75, Low24h: 6.33, Change24h: -0.2, ChangePct24h: -2.99},
		{ID: "chainlink", Symbol: "link", Name: "Chainlink", Price: 13.80, MarketCap: 8100000000, Rank: 10, Volume24h: 360000000, High24h: 14.3, Low24h: 13.3, Change24h: 0.3, ChangePct24h: 2.22},
	}
}

func fallbackSummary() MarketSummary {
	return MarketSummary{
		TotalMarketCap: 2300000000000,
		TotalVolume:    90000000000,
		BTCDominance:   51.3,
		ETHDominance:   15.7,
	}
}
