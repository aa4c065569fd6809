// Package news fetches crypto headlines for the dashboard. It follows the
// same policy as the market-data gateway: transport failure yields a
// deterministic fallback set, never an error.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ZILLABB/cryptonested-sub001/internal/marketdata"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
)

// Article is one headline.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Config holds news provider configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client
}

// Client fetches headlines from a JSON news endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: cfg.BaseURL, httpClient: httpClient}
}

type headlinesEnvelope struct {
	Articles []Article `json:"articles"`
}

// Headlines returns up to limit articles, live when the provider answers
// and the fallback set otherwise.
func (c *Client) Headlines(ctx context.Context, limit int) marketdata.Result[[]Article] {
	if limit <= 0 {
		limit = 10
	}

	articles, err := c.fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("News provider unavailable, serving fallback headlines")
		return marketdata.Result[[]Article]{
			Data:     clip(fallbackArticles(), limit),
			Fallback: true,
			Reason:   err.Error(),
		}
	}
	return marketdata.Result[[]Article]{Data: clip(articles, limit)}
}

func (c *Client) fetch(ctx context.Context) ([]Article, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no news provider configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/news", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope headlinesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return envelope.Articles, nil
}

func clip(articles []Article, limit int) []Article {
	if len(articles) > limit {
		return articles[:limit]
	}
	return articles
}

// fallbackArticles is the deterministic degraded-mode headline set.
func fallbackArticles() []Article {
	published := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	return []Article{
		{ID: "fallback-1", Title: "Bitcoin Holds Above Key Support as Institutional Inflows Continue", Source: "CryptoNested", PublishedAt: published},
		{ID: "fallback-2", Title: "Ethereum Staking Deposits Reach New All-Time High", Source: "CryptoNested", PublishedAt: published},
		{ID: "fallback-3", Title: "Solana Ecosystem Sees Surge in Developer Activity", Source: "CryptoNested", PublishedAt: published},
		{ID: "fallback-4", Title: "Regulators Signal Clearer Framework for Digital Asset Custody", Source: "CryptoNested", PublishedAt: published},
		{ID: "fallback-5", Title: "Stablecoin Settlement Volume Outpaces Card Networks Again", Source: "CryptoNested", PublishedAt: published},
	}
}
