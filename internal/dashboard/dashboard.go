// Package dashboard assembles the composite view backing the main page.
// Every slice of the aggregate has its own failure boundary: a failing
// collaborator is logged and replaced with its documented zero value, never
// allowed to abort the whole aggregate.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/ZILLABB/cryptonested-sub001/internal/marketdata"
	"github.com/ZILLABB/cryptonested-sub001/internal/news"
	"github.com/ZILLABB/cryptonested-sub001/internal/portfolio"
	"github.com/ZILLABB/cryptonested-sub001/internal/staking"
	"github.com/ZILLABB/cryptonested-sub001/pkg/cache"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
)

const (
	compositeTTL     = 5 * time.Minute
	topCoinsLimit    = 10
	moversLimit      = 5
	headlinesLimit   = 6
	transactionLimit = 10
)

// MarketSource is the slice of the market-data gateway the aggregator uses.
type MarketSource interface {
	MarketSummary(ctx context.Context) marketdata.Result[marketdata.MarketSummary]
	TopCoins(ctx context.Context, limit int, currency string) marketdata.Result[[]marketdata.CoinSnapshot]
	GainersLosers(ctx context.Context, limit int) marketdata.Result[marketdata.GainersLosers]
}

// NewsSource feeds the headlines slice.
type NewsSource interface {
	Headlines(ctx context.Context, limit int) marketdata.Result[[]news.Article]
}

// PortfolioSource feeds the holdings, allocation and transaction slices.
type PortfolioSource interface {
	Holdings(ctx context.Context, userID string) ([]portfolio.ValuedHolding, portfolio.Summary, error)
	Allocation(ctx context.Context, userID string) ([]portfolio.AssetAllocation, error)
	Transactions(ctx context.Context, userID string, limit int) ([]portfolio.Transaction, error)
}

// StakingSource feeds the staking slice.
type StakingSource interface {
	Summary(ctx context.Context, userID string) (*staking.Summary, error)
}

// Dashboard is the composite view model handed to the presentation layer.
// Market slices carry their fallback flag through; portfolio and staking
// slices degrade to zero values.
type Dashboard struct {
	UserID      string    `json:"user_id"`
	GeneratedAt time.Time `json:"generated_at"`

	MarketSummary marketdata.Result[marketdata.MarketSummary]  `json:"market_summary"`
	TopCoins      marketdata.Result[[]marketdata.CoinSnapshot] `json:"top_coins"`
	Movers        marketdata.Result[marketdata.GainersLosers]  `json:"movers"`
	News          marketdata.Result[[]news.Article]            `json:"news"`

	Holdings         []portfolio.ValuedHolding   `json:"holdings"`
	PortfolioSummary portfolio.Summary           `json:"portfolio_summary"`
	Allocation       []portfolio.AssetAllocation `json:"allocation"`
	Transactions     []portfolio.Transaction     `json:"transactions"`
	Staking          staking.Summary             `json:"staking"`

	// Degraded lists the slices that fell back to their zero value.
	Degraded []string `json:"degraded,omitempty"`
}

// Aggregator fans the dashboard's constituent fetches out concurrently and
// caches the composite per user.
type Aggregator struct {
	market    MarketSource
	news      NewsSource
	portfolio PortfolioSource
	staking   StakingSource
	cache     *cache.Memory
	now       func() time.Time
}

func NewAggregator(market MarketSource, newsSource NewsSource, portfolioSource PortfolioSource, stakingSource StakingSource, c *cache.Memory) *Aggregator {
	return &Aggregator{
		market:    market,
		news:      newsSource,
		portfolio: portfolioSource,
		staking:   stakingSource,
		cache:     c,
		now:       time.Now,
	}
}

// Dashboard returns the composite view for one user, cached for five
// minutes. The compute path never fails: every slice degrades
// independently.
func (a *Aggregator) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	v, err := a.cache.GetOrCompute(ctx, "dashboard:"+userID, compositeTTL, func(ctx context.Context) (any, error) {
		return a.build(ctx, userID), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dashboard), nil
}

// Invalidate drops a user's cached composite, e.g. after a write.
func (a *Aggregator) Invalidate(userID string) {
	a.cache.Delete("dashboard:" + userID)
}

func (a *Aggregator) build(ctx context.Context, userID string) *Dashboard {
	d := &Dashboard{UserID: userID, GeneratedAt: a.now()}

	var mu sync.Mutex
	degrade := func(slice string, err error) {
		logger.Warn().Err(err).Str("slice", slice).Str("user_id", userID).Msg("Dashboard slice degraded to zero value")
		mu.Lock()
		d.Degraded = append(d.Degraded, slice)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { d.MarketSummary = a.market.MarketSummary(ctx) })
	run(func() { d.TopCoins = a.market.TopCoins(ctx, topCoinsLimit, "usd") })
	run(func() { d.Movers = a.market.GainersLosers(ctx, moversLimit) })
	run(func() { d.News = a.news.Headlines(ctx, headlinesLimit) })

	run(func() {
		holdings, summary, err := a.portfolio.Holdings(ctx, userID)
		if err != nil {
			degrade("holdings", err)
			return
		}
		d.Holdings = holdings
		d.PortfolioSummary = summary
	})
	run(func() {
		allocation, err := a.portfolio.Allocation(ctx, userID)
		if err != nil {
			degrade("allocation", err)
			return
		}
		d.Allocation = allocation
	})
	run(func() {
		txs, err := a.portfolio.Transactions(ctx, userID, transactionLimit)
		if err != nil {
			degrade("transactions", err)
			return
		}
		d.Transactions = txs
	})
	run(func() {
		summary, err := a.staking.Summary(ctx, userID)
		if err != nil {
			degrade("staking", err)
			return
		}
		d.Staking = *summary
	})

	wg.Wait()

	if d.Holdings == nil {
		d.Holdings = []portfolio.ValuedHolding{}
	}
	if d.Allocation == nil {
		d.Allocation = []portfolio.AssetAllocation{}
	}
	if d.Transactions == nil {
		d.Transactions = []portfolio.Transaction{}
	}
	return d
}
