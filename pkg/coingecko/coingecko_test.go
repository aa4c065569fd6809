package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_CoinsMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("vs_currency"); got != "usd" {
			t.Errorf("vs_currency = %s", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "2" {
			t.Errorf("per_page = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":64000,"market_cap":1260000000000,"market_cap_rank":1,"price_change_percentage_24h":1.2},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3100,"market_cap":375000000000,"market_cap_rank":2,"price_change_percentage_24h":-0.8}
		]`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL})
	coins, err := c.CoinsMarkets(context.Background(), "usd", 2)
	if err != nil {
		t.Fatalf("CoinsMarkets() error = %v", err)
	}
	if len(coins) != 2 {
		t.Fatalf("got %d coins, want 2", len(coins))
	}
	if coins[0].ID != "bitcoin" || coins[0].CurrentPrice != 64000 {
		t.Errorf("first coin = %+v", coins[0])
	}
}

func TestClient_Global(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/global" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"total_market_cap":{"usd":2400000000000},"total_volume":{"usd":98000000000},"market_cap_percentage":{"btc":52.1,"eth":15.7}}}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL})
	global, err := c.Global(context.Background())
	if err != nil {
		t.Fatalf("Global() error = %v", err)
	}
	if global.TotalMarketCap["usd"] != 2400000000000 {
		t.Errorf("TotalMarketCap = %v", global.TotalMarketCap)
	}
	if global.MarketCapPercentage["btc"] != 52.1 {
		t.Errorf("btc dominance = %v", global.MarketCapPercentage["btc"])
	}
}

func TestClient_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL})
	_, err := c.CoinsMarkets(context.Background(), "usd", 10)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL})
	_, err := c.Global(context.Background())
	if err == nil {
		t.Fatalf("expected error on 502")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Errorf("502 must not be classified as rate limiting")
	}
}

func TestMockClient_CoinsMarketsOrderedAndLimited(t *testing.T) {
	m := NewMockClient()
	coins, err := m.CoinsMarkets(context.Background(), "usd", 5)
	if err != nil {
		t.Fatalf("CoinsMarkets() error = %v", err)
	}
	if len(coins) != 5 {
		t.Fatalf("got %d coins, want 5", len(coins))
	}
	for i := 1; i < len(coins); i++ {
		if coins[i].MarketCap > coins[i-1].MarketCap {
			t.Errorf("coins not ordered by descending market cap at index %d", i)
		}
	}
	if coins[0].ID != "bitcoin" {
		t.Errorf("top coin = %s, want bitcoin", coins[0].ID)
	}
}

func TestMockClient_CoinByID(t *testing.T) {
	m := NewMockClient()

	detail, err := m.CoinByID(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("CoinByID() error = %v", err)
	}
	if detail.Name != "Ethereum" || detail.MarketData.CurrentPrice["usd"] == 0 {
		t.Errorf("detail = %+v", detail)
	}

	if _, err := m.CoinByID(context.Background(), "no-such-coin"); err == nil {
		t.Errorf("unknown coin should error")
	}
}
