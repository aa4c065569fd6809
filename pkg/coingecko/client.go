package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrRateLimited marks a 429 from the API. The market-data gateway treats it
// as a fallback trigger, distinguishable from plain transport failure.
var ErrRateLimited = errors.New("coingecko: rate limited")

// Config holds CoinGecko API configuration.
type Config struct {
	// BaseURL defaults to the public v3 API. Point it at a mock server in
	// integration tests.
	BaseURL string
	// APIKey is optional; when set it is sent as the pro API header.
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default traced client when set.
	HTTPClient *http.Client
}

// Client is the CoinGecko HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, target any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CoinsMarkets returns up to limit coins ordered by descending market cap,
// priced in the given currency.
func (c *Client) CoinsMarkets(ctx context.Context, currency string, limit int) ([]CoinMarket, error) {
	if currency == "" {
		currency = "usd"
	}
	if limit <= 0 || limit > 250 {
		limit = 100
	}

	query := url.Values{}
	query.Set("vs_currency", currency)
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("page", "1")
	query.Set("price_change_percentage", "24h")

	var coins []CoinMarket
	if err := c.get(ctx, "/coins/markets", query, &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// Global returns the global market aggregates.
func (c *Client) Global(ctx context.Context) (*GlobalData, error) {
	var envelope globalEnvelope
	if err := c.get(ctx, "/global", nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// CoinByID returns the detailed snapshot for one coin.
func (c *Client) CoinByID(ctx context.Context, id string) (*CoinDetail, error) {
	query := url.Values{}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")

	var detail CoinDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), query, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
