package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ZILLABB/cryptonested-sub001/pkg/cache"
	"github.com/ZILLABB/cryptonested-sub001/pkg/coingecko"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
	"github.com/ZILLABB/cryptonested-sub001/pkg/metrics"
)

const (
	marketsTTL = time.Minute
	summaryTTL = 5 * time.Minute
	coinTTL    = time.Minute

	// lastGoodTTL bounds how stale a degraded response may be when a
	// shared last-known-good store is configured.
	lastGoodTTL = 24 * time.Hour

	// marketsDepth is the snapshot set every derived read works from.
	marketsDepth = 100
)

// LastGoodStore persists the most recent live payloads so the fallback path
// can serve real (if stale) data instead of the synthetic set. Optional;
// cache.Redis implements it.
type LastGoodStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Gateway fronts the market-data provider. Read operations always return a
// structurally valid Result; transport failures select the fallback branch
// and are never propagated.
type Gateway struct {
	provider coingecko.Provider
	cache    *cache.Memory
	lastGood LastGoodStore
}

type GatewayOption func(*Gateway)

// WithLastGood attaches a shared last-known-good store.
func WithLastGood(store LastGoodStore) GatewayOption {
	return func(g *Gateway) { g.lastGood = store }
}

func NewGateway(provider coingecko.Provider, c *cache.Memory, opts ...GatewayOption) *Gateway {
	g := &Gateway{provider: provider, cache: c}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TopCoins returns up to limit coins ordered by descending market cap.
func (g *Gateway) TopCoins(ctx context.Context, limit int, currency string) Result[[]CoinSnapshot] {
	if limit <= 0 || limit > marketsDepth {
		limit = marketsDepth
	}

	res := g.markets(ctx, currency)
	metrics.RecordMarketFetch("top_coins", res.Fallback)

	coins := res.Data
	if len(coins) > limit {
		coins = coins[:limit]
	}
	return Result[[]CoinSnapshot]{Data: coins, Fallback: res.Fallback, Reason: res.Reason}
}

// GainersLosers sorts the top-100 snapshot set by 24h percentage change and
// returns the head and tail of limit each. Losers come worst-first.
func (g *Gateway) GainersLosers(ctx context.Context, limit int) Result[GainersLosers] {
	if limit <= 0 || limit > marketsDepth/2 {
		limit = 5
	}

	res := g.markets(ctx, "usd")
	metrics.RecordMarketFetch("gainers_losers", res.Fallback)

	sorted := make([]CoinSnapshot, len(res.Data))
	copy(sorted, res.Data)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ChangePct24h > sorted[j].ChangePct24h
	})

	n := len(sorted)
	if limit > n/2 {
		limit = n / 2
	}

	gainers := make([]CoinSnapshot, limit)
	copy(gainers, sorted[:limit])

	losers := make([]CoinSnapshot, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		losers = append(losers, sorted[i])
	}

	return Result[GainersLosers]{
		Data:     GainersLosers{Gainers: gainers, Losers: losers},
		Fallback: res.Fallback,
		Reason:   res.Reason,
	}
}

// MarketSummary returns the global market aggregates.
func (g *Gateway) MarketSummary(ctx context.Context) Result[MarketSummary] {
	const key = "market:summary"

	if v, hit := g.cache.Get(key); hit {
		metrics.RecordCacheLookup("market_summary", true)
		metrics.RecordMarketFetch("market_summary", false)
		return ok(v.(MarketSummary))
	}
	metrics.RecordCacheLookup("market_summary", false)

	global, err := g.provider.Global(ctx)
	if err != nil {
		reason := classify(err)
		logger.Warn().Err(err).Str("operation", "market_summary").Msg("Market data degraded to fallback")
		metrics.RecordMarketFetch("market_summary", true)

		var stale MarketSummary
		if g.restoreLastGood(ctx, key, &stale) {
			return degraded(stale, reason)
		}
		return degraded(fallbackSummary(), reason)
	}

	summary := MarketSummary{
		TotalMarketCap: global.TotalMarketCap["usd"],
		TotalVolume:    global.TotalVolume["usd"],
		BTCDominance:   global.MarketCapPercentage["btc"],
		ETHDominance:   global.MarketCapPercentage["eth"],
	}

	g.cache.Set(key, summary, summaryTTL)
	g.storeLastGood(ctx, key, summary)
	metrics.RecordMarketFetch("market_summary", false)
	return ok(summary)
}

// Coin returns the detailed snapshot for one coin.
func (g *Gateway) Coin(ctx context.Context, id string) Result[CoinSnapshot] {
	key := "market:coin:" + id

	if v, hit := g.cache.Get(key); hit {
		metrics.RecordCacheLookup("coin_detail", true)
		metrics.RecordMarketFetch("coin_detail", false)
		return ok(v.(CoinSnapshot))
	}
	metrics.RecordCacheLookup("coin_detail", false)

	detail, err := g.provider.CoinByID(ctx, id)
	if err != nil {
		reason := classify(err)
		logger.Warn().Err(err).Str("coin", id).Msg("Market data degraded to fallback")
		metrics.RecordMarketFetch("coin_detail", true)

		var stale CoinSnapshot
		if g.restoreLastGood(ctx, key, &stale) {
			return degraded(stale, reason)
		}
		for _, c := range fallbackCoins() {
			if c.ID == id {
				return degraded(c, reason)
			}
		}
		return degraded(CoinSnapshot{ID: id}, reason)
	}

	snapshot := CoinSnapshot{
		ID:           detail.ID,
		Symbol:       detail.Symbol,
		Name:         detail.Name,
		Image:        detail.Image.Small,
		Price:        detail.MarketData.CurrentPrice["usd"],
		MarketCap:    detail.MarketData.MarketCap["usd"],
		Volume24h:    detail.MarketData.TotalVolume["usd"],
		High24h:      detail.MarketData.High24h["usd"],
		Low24h:       detail.MarketData.Low24h["usd"],
		ChangePct24h: detail.MarketData.PriceChangePercentage24h,
	}

	g.cache.Set(key, snapshot, coinTTL)
	g.storeLastGood(ctx, key, snapshot)
	metrics.RecordMarketFetch("coin_detail", false)
	return ok(snapshot)
}

// Prices returns a coin-id keyed price map from the top-100 snapshot set.
// The valuation engine uses it to price holdings; coins outside the top 100
// are simply absent and the engine drops them.
func (g *Gateway) Prices(ctx context.Context) map[string]float64 {
	res := g.markets(ctx, "usd")
	prices := make(map[string]float64, len(res.Data))
	for _, c := range res.Data {
		prices[c.ID] = c.Price
	}
	return prices
}

// markets fetches the top-100 snapshot set for a currency, consulting the
// in-process cache first and degrading on provider failure.
func (g *Gateway) markets(ctx context.Context, currency string) Result[[]CoinSnapshot] {
	if currency == "" {
		currency = "usd"
	}
	key := "market:coins:" + currency

	if v, hit := g.cache.Get(key); hit {
		metrics.RecordCacheLookup("markets", true)
		return ok(v.([]CoinSnapshot))
	}
	metrics.RecordCacheLookup("markets", false)

	raw, err := g.provider.CoinsMarkets(ctx, currency, marketsDepth)
	if err != nil {
		reason := classify(err)
		logger.Warn().Err(err).Str("operation", "coins_markets").Msg("Market data degraded to fallback")

		var stale []CoinSnapshot
		if g.restoreLastGood(ctx, key, &stale) {
			return degraded(stale, reason)
		}
		return degraded(fallbackCoins(), reason)
	}

	coins := make([]CoinSnapshot, 0, len(raw))
	for _, c := range raw {
		coins = append(coins, CoinSnapshot{
			ID:           c.ID,
			Symbol:       c.Symbol,
			Name:         c.Name,
			Image:        c.Image,
			Price:        c.CurrentPrice,
			MarketCap:    c.MarketCap,
			Rank:         c.MarketCapRank,
			Volume24h:    c.TotalVolume,
			High24h:      c.High24h,
			Low24h:       c.Low24h,
			Change24h:    c.PriceChange24h,
			ChangePct24h: c.PriceChangePercentage24h,
		})
	}

	g.cache.Set(key, coins, marketsTTL)
	g.storeLastGood(ctx, key, coins)
	return ok(coins)
}

func (g *Gateway) storeLastGood(ctx context.Context, key string, value any) {
	if g.lastGood == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := g.lastGood.Set(ctx, key, string(data), lastGoodTTL); err != nil {
		logger.Debug().Err(err).Str("key", key).Msg("Failed to persist last-known-good snapshot")
	}
}

func (g *Gateway) restoreLastGood(ctx context.Context, key string, target any) bool {
	if g.lastGood == nil {
		return false
	}
	data, found, err := g.lastGood.Get(ctx, key)
	if err != nil || !found {
		return false
	}
	return json.Unmarshal([]byte(data), target) == nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, coingecko.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return fmt.Sprintf("upstream_error: %v", err)
	}
}
