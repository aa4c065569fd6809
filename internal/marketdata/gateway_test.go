package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ZILLABB/cryptonested-sub001/pkg/cache"
	"github.com/ZILLABB/cryptonested-sub001/pkg/coingecko"
)

// stubProvider lets each test script provider behavior per call.
type stubProvider struct {
	marketsFn  func(ctx context.Context, currency string, limit int) ([]coingecko.CoinMarket, error)
	globalFn   func(ctx context.Context) (*coingecko.GlobalData, error)
	coinFn     func(ctx context.Context, id string) (*coingecko.CoinDetail, error)
	marketCall int
}

func (s *stubProvider) CoinsMarkets(ctx context.Context, currency string, limit int) ([]coingecko.CoinMarket, error) {
	s.marketCall++
	if s.marketsFn == nil {
		return nil, errors.New("not scripted")
	}
	return s.marketsFn(ctx, currency, limit)
}

func (s *stubProvider) Global(ctx context.Context) (*coingecko.GlobalData, error) {
	if s.globalFn == nil {
		return nil, errors.New("not scripted")
	}
	return s.globalFn(ctx)
}

func (s *stubProvider) CoinByID(ctx context.Context, id string) (*coingecko.CoinDetail, error) {
	if s.coinFn == nil {
		return nil, errors.New("not scripted")
	}
	return s.coinFn(ctx, id)
}

func marketRows(n int) []coingecko.CoinMarket {
	rows := make([]coingecko.CoinMarket, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, coingecko.CoinMarket{
			ID:                       fmt.Sprintf("coin-%02d", i),
			Symbol:                   fmt.Sprintf("c%02d", i),
			Name:                     fmt.Sprintf("Coin %02d", i),
			CurrentPrice:             float64(1000 - i),
			MarketCap:                float64((100 - i) * 1e9),
			MarketCapRank:            i + 1,
			PriceChangePercentage24h: float64(50 - i), // strictly decreasing
		})
	}
	return rows
}

func TestGateway_TopCoinsLiveAndCached(t *testing.T) {
	provider := &stubProvider{
		marketsFn: func(_ context.Context, _ string, _ int) ([]coingecko.CoinMarket, error) {
			return marketRows(20), nil
		},
	}
	g := NewGateway(provider, cache.NewMemory())

	res := g.TopCoins(context.Background(), 5, "usd")
	if res.Fallback {
		t.Fatalf("live path should not be marked fallback: %s", res.Reason)
	}
	if len(res.Data) != 5 {
		t.Fatalf("got %d coins, want 5", len(res.Data))
	}
	if res.Data[0].ID != "coin-00" || res.Data[0].Rank != 1 {
		t.Errorf("head = %+v", res.Data[0])
	}

	// Second call with a different limit must come from the cached
	// top-100 set, not a new provider call.
	res = g.TopCoins(context.Background(), 10, "usd")
	if len(res.Data) != 10 {
		t.Errorf("got %d coins, want 10", len(res.Data))
	}
	if provider.marketCall != 1 {
		t.Errorf("provider called %d times, want 1", provider.marketCall)
	}
}

func TestGateway_TopCoinsFallbackOnError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{name: "rate limited", err: coingecko.ErrRateLimited, wantReason: "rate_limited"},
		{name: "timeout", err: context.DeadlineExceeded, wantReason: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{
				marketsFn: func(_ context.Context, _ string, _ int) ([]coingecko.CoinMarket, error) {
					return nil, tt.err
				},
			}
			g := NewGateway(provider, cache.NewMemory())

			res := g.TopCoins(context.Background(), 5, "usd")
			if !res.Fallback {
				t.Fatalf("transport failure must select the fallback branch")
			}
			if res.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", res.Reason, tt.wantReason)
			}
			if len(res.Data) == 0 {
				t.Errorf("fallback data must be structurally valid and non-empty")
			}
			for _, c := range res.Data {
				if c.ID == "" || c.Price <= 0 {
					t.Errorf("fallback snapshot invalid: %+v", c)
				}
			}
		})
	}
}

// memLastGood is an in-memory LastGoodStore for tests.
type memLastGood struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memLastGood) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memLastGood) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

func TestGateway_FallbackPrefersLastKnownGood(t *testing.T) {
	failing := false
	provider := &stubProvider{
		marketsFn: func(_ context.Context, _ string, _ int) ([]coingecko.CoinMarket, error) {
			if failing {
				return nil, coingecko.ErrRateLimited
			}
			return marketRows(3), nil
		},
	}

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mem := cache.NewMemoryWithClock(func() time.Time { return clock })
	store := &memLastGood{}
	g := NewGateway(provider, mem, WithLastGood(store))

	// Prime with live data, then expire the cache and fail the provider.
	if res := g.TopCoins(context.Background(), 3, "usd"); res.Fallback {
		t.Fatalf("priming fetch should be live")
	}
	clock = clock.Add(10 * time.Minute)
	failing = true

	res := g.TopCoins(context.Background(), 3, "usd")
	if !res.Fallback {
		t.Fatalf("expected fallback branch")
	}
	if res.Data[0].ID != "coin-00" {
		t.Errorf("fallback should serve last-known-good data, got %+v", res.Data[0])
	}
}

func TestGateway_GainersLosers(t *testing.T) {
	provider := &stubProvider{
		marketsFn: func(_ context.Context, _ string, _ int) ([]coingecko.CoinMarket, error) {
			return marketRows(10), nil
		},
	}
	g := NewGateway(provider, cache.NewMemory())

	res := g.GainersLosers(context.Background(), 3)
	if res.Fallback {
		t.Fatalf("unexpected fallback: %s", res.Reason)
	}

	gl := res.Data
	if len(gl.Gainers) != 3 || len(gl.Losers) != 3 {
		t.Fatalf("got %d gainers, %d losers, want 3 each", len(gl.Gainers), len(gl.Losers))
	}
	// marketRows change percentages strictly decrease with index.
	if gl.Gainers[0].ID != "coin-00" {
		t.Errorf("top gainer = %s, want coin-00", gl.Gainers[0].ID)
	}
	if gl.Losers[0].ID != "coin-09" {
		t.Errorf("worst loser should come first, got %s", gl.Losers[0].ID)
	}
	if gl.Gainers[0].ChangePct24h <= gl.Gainers[2].ChangePct24h {
		t.Errorf("gainers not ordered by descending change")
	}
}

func TestGateway_MarketSummary(t *testing.T) {
	provider := &stubProvider{
		globalFn: func(context.Context) (*coingecko.GlobalData, error) {
			return &coingecko.GlobalData{
				TotalMarketCap:      map[string]float64{"usd": 2.4e12},
				TotalVolume:         map[string]float64{"usd": 9.8e10},
				MarketCapPercentage: map[string]float64{"btc": 52.1, "eth": 15.7},
			}, nil
		},
	}
	g := NewGateway(provider, cache.NewMemory())

	res := g.MarketSummary(context.Background())
	if res.Fallback {
		t.Fatalf("unexpected fallback: %s", res.Reason)
	}
	if res.Data.TotalMarketCap != 2.4e12 || res.Data.BTCDominance != 52.1 || res.Data.ETHDominance != 15.7 {
		t.Errorf("summary = %+v", res.Data)
	}
}

func TestGateway_MarketSummaryFallback(t *testing.T) {
	provider := &stubProvider{
		globalFn: func(context.Context) (*coingecko.GlobalData, error) {
			return nil, errors.New("connection refused")
		},
	}
	g := NewGateway(provider, cache.NewMemory())

	res := g.MarketSummary(context.Background())
	if !res.Fallback {
		t.Fatalf("expected fallback branch")
	}
	if res.Data.TotalMarketCap <= 0 || res.Data.BTCDominance <= 0 {
		t.Errorf("fallback summary must be structurally valid: %+v", res.Data)
	}
}

func TestGateway_CoinFallback(t *testing.T) {
	provider := &stubProvider{
		coinFn: func(_ context.Context, _ string) (*coingecko.CoinDetail, error) {
			return nil, coingecko.ErrRateLimited
		},
	}
	g := NewGateway(provider, cache.NewMemory())

	res := g.Coin(context.Background(), "bitcoin")
	if !res.Fallback || res.Data.ID != "bitcoin" || res.Data.Price <= 0 {
		t.Errorf("known coin should fall back to the synthetic snapshot: %+v", res)
	}

	res = g.Coin(context.Background(), "obscurecoin")
	if !res.Fallback || res.Data.ID != "obscurecoin" {
		t.Errorf("unknown coin fallback should at least carry the ID: %+v", res)
	}
}

func TestGateway_Prices(t *testing.T) {
	provider := &stubProvider{
		marketsFn: func(_ context.Context, _ string, _ int) ([]coingecko.CoinMarket, error) {
			return marketRows(4), nil
		},
	}
	g := NewGateway(provider, cache.NewMemory())

	prices := g.Prices(context.Background())
	if len(prices) != 4 {
		t.Fatalf("got %d prices, want 4", len(prices))
	}
	if prices["coin-01"] != 999 {
		t.Errorf("coin-01 price = %v, want 999", prices["coin-01"])
	}
}
