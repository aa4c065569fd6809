package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZILLABB/cryptonested-sub001/internal/marketdata"
	apperrors "github.com/ZILLABB/cryptonested-sub001/pkg/errors"
	"github.com/ZILLABB/cryptonested-sub001/pkg/events"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
	"github.com/ZILLABB/cryptonested-sub001/pkg/metrics"
)

// MarketSource is the slice of the market-data gateway the portfolio
// service consumes.
type MarketSource interface {
	TopCoins(ctx context.Context, limit int, currency string) marketdata.Result[[]marketdata.CoinSnapshot]
}

// Service turns raw holdings and transactions into valuation figures and
// owns the valuation snapshot time series.
type Service struct {
	store     Store
	market    MarketSource
	publisher events.Publisher
	now       func() time.Time

	// userLocks serializes holding mutations per user so concurrent
	// transaction recording cannot lose an update.
	userLocks sync.Map // userID -> *sync.Mutex
}

func NewService(store Store, market MarketSource, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:     store,
		market:    market,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock overrides the clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) lockUser(userID string) func() {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Holdings returns the user's valued holdings and their summary. Holdings
// whose coin has no current price are dropped from the valued set.
func (s *Service) Holdings(ctx context.Context, userID string) ([]ValuedHolding, Summary, error) {
	holdings, err := s.store.ListHoldings(ctx, userID)
	if err != nil {
		return nil, Summary{}, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	coins := s.market.TopCoins(ctx, 0, "usd").Data
	prices := make(map[string]float64, len(coins))
	meta := make(map[string]marketdata.CoinSnapshot, len(coins))
	for _, c := range coins {
		prices[c.ID] = c.Price
		meta[c.ID] = c
	}

	valued := ValueHoldings(holdings, prices)
	for i := range valued {
		if m, ok := meta[valued[i].CoinID]; ok {
			valued[i].Name = m.Name
			valued[i].Symbol = m.Symbol
			valued[i].Image = m.Image
		}
	}

	return valued, Valuate(valued), nil
}

// Allocation returns each holding's share of total portfolio value.
func (s *Service) Allocation(ctx context.Context, userID string) ([]AssetAllocation, error) {
	valued, _, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Allocate(valued), nil
}

// Transactions returns the newest limit ledger entries.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	return txs, nil
}

// TransactionRequest is the write-path input for RecordTransaction.
type TransactionRequest struct {
	UserID      string  `json:"user_id"`
	PortfolioID string  `json:"portfolio_id,omitempty"`
	CoinID      string  `json:"coin_id"`
	Type        string  `json:"type"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Fee         float64 `json:"fee,omitempty"`
	Note        string  `json:"note,omitempty"`
}

func (r *TransactionRequest) validate() error {
	switch r.Type {
	case TxBuy, TxSell, TxTransfer:
	default:
		return apperrors.ErrValidation.WithDetails(fmt.Sprintf("unknown transaction type %q", r.Type))
	}
	if r.UserID == "" || r.CoinID == "" {
		return apperrors.ErrValidation.WithDetails("user_id and coin_id are required")
	}
	if r.Quantity <= 0 {
		return apperrors.ErrValidation.WithDetails("quantity must be positive")
	}
	if r.Price < 0 || r.Fee < 0 {
		return apperrors.ErrValidation.WithDetails("price and fee must not be negative")
	}
	return nil
}

// RecordTransaction appends a ledger entry and applies its effect to the
// user's holding. Buys fold the fill price into the weighted average buy
// price; sells reduce quantity and remove the holding once it reaches zero.
// Transfers touch the ledger only. Store failures surface as
// ErrUpstreamUnavailable: there is no safe fallback for a write.
func (s *Service) RecordTransaction(ctx context.Context, req *TransactionRequest) (*Transaction, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	unlock := s.lockUser(req.UserID)
	defer unlock()

	now := s.now()
	tx := &Transaction{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		PortfolioID: req.PortfolioID,
		CoinID:      req.CoinID,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Fee:         req.Fee,
		Note:        req.Note,
		ExecutedAt:  now,
	}

	switch req.Type {
	case TxBuy:
		if err := s.applyBuy(ctx, req, now); err != nil {
			return nil, err
		}
	case TxSell:
		if err := s.applySell(ctx, req, now); err != nil {
			return nil, err
		}
	}

	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	event := events.NewEvent("transaction.recorded.v1", events.TransactionRecordedPayload{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		PortfolioID:   tx.PortfolioID,
		CoinID:        tx.CoinID,
		Type:          tx.Type,
		Quantity:      tx.Quantity,
		Price:         tx.Price,
		Fee:           tx.Fee,
		ExecutedAt:    tx.ExecutedAt,
	})
	if err := s.publisher.Publish(ctx, events.TopicTransactions, event); err != nil {
		logger.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to publish transaction event")
	}

	return tx, nil
}

func (s *Service) applyBuy(ctx context.Context, req *TransactionRequest, now time.Time) error {
	holding, err := s.store.GetHolding(ctx, req.UserID, req.CoinID)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	if holding == nil {
		holding = &Holding{
			ID:          uuid.New().String(),
			UserID:      req.UserID,
			PortfolioID: req.PortfolioID,
			CoinID:      req.CoinID,
			Quantity:    req.Quantity,
			AvgBuyPrice: req.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	} else {
		oldCost := holding.Quantity * holding.AvgBuyPrice
		newCost := req.Quantity * req.Price
		holding.Quantity += req.Quantity
		holding.AvgBuyPrice = (oldCost + newCost) / holding.Quantity
		holding.UpdatedAt = now
	}

	if err := s.store.UpsertHolding(ctx, holding); err != nil {
		return apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	return nil
}

func (s *Service) applySell(ctx context.Context, req *TransactionRequest, now time.Time) error {
	holding, err := s.store.GetHolding(ctx, req.UserID, req.CoinID)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if holding == nil || holding.Quantity < req.Quantity {
		return apperrors.ErrInsufficientHoldings.WithDetails(fmt.Sprintf("coin %s", req.CoinID))
	}

	holding.Quantity -= req.Quantity
	holding.UpdatedAt = now

	// A fully sold holding is deleted rather than kept at zero; the
	// allocation and valuation invariants hold either way.
	if holding.Quantity == 0 {
		if err := s.store.DeleteHolding(ctx, req.UserID, req.CoinID); err != nil {
			return apperrors.ErrUpstreamUnavailable.WithError(err)
		}
		return nil
	}

	if err := s.store.UpsertHolding(ctx, holding); err != nil {
		return apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	return nil
}

// SnapshotNow records a user-triggered valuation snapshot.
func (s *Service) SnapshotNow(ctx context.Context, userID string) (*Snapshot, error) {
	return s.snapshotUser(ctx, userID, "manual")
}

// SnapshotAll records a scheduled snapshot for every user with holdings.
// One failing user does not stop the pass.
func (s *Service) SnapshotAll(ctx context.Context) error {
	users, err := s.store.ListUsersWithHoldings(ctx)
	if err != nil {
		return apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	for _, userID := range users {
		if _, err := s.snapshotUser(ctx, userID, "scheduled"); err != nil {
			logger.Warn().Err(err).Str("user_id", userID).Msg("Scheduled snapshot failed for user")
		}
	}
	return nil
}

func (s *Service) snapshotUser(ctx context.Context, userID, trigger string) (*Snapshot, error) {
	_, summary, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		ID:         uuid.New().String(),
		UserID:     userID,
		TotalValue: summary.TotalValue,
		TotalCost:  summary.TotalCost,
		Trigger:    trigger,
		TakenAt:    s.now(),
	}
	if err := s.store.InsertSnapshot(ctx, snapshot); err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	metrics.RecordPortfolioSnapshot(trigger)
	return snapshot, nil
}

var performanceWindows = []struct {
	period   string
	lookback time.Duration
}{
	{"24h", 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
	{"30d", 30 * 24 * time.Hour},
	{"1y", 365 * 24 * time.Hour},
}

// Performance reports value change per lookback window against the oldest
// snapshot inside that window. Windows without an old-enough snapshot are
// reported unsampled instead of being faked.
func (s *Service) Performance(ctx context.Context, userID string) (*Performance, error) {
	_, summary, err := s.Holdings(ctx, userID)
	if err != nil {
		return nil, err
	}

	perf := &Performance{CurrentValue: summary.TotalValue}
	now := s.now()

	for _, w := range performanceWindows {
		window := PerformanceWindow{Period: w.period}

		snapshots, err := s.store.ListSnapshots(ctx, userID, now.Add(-w.lookback))
		if err != nil {
			return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
		}
		if len(snapshots) > 0 {
			baseline := snapshots[0]
			window.Sampled = true
			window.Change = summary.TotalValue - baseline.TotalValue
			if baseline.TotalValue > 0 {
				window.ChangePct = window.Change / baseline.TotalValue * 100
			}
		}

		perf.Windows = append(perf.Windows, window)
	}

	return perf, nil
}
