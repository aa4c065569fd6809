package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store over a pgx pool. Schema: migrations/schema.sql.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) ListHoldings(ctx context.Context, userID string) ([]Holding, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, COALESCE(portfolio_id, ''), coin_id, quantity, avg_buy_price, created_at, updated_at
		FROM holdings
		WHERE user_id = $1 AND quantity > 0
		ORDER BY coin_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		err := rows.Scan(
			&h.ID, &h.UserID, &h.PortfolioID, &h.CoinID,
			&h.Quantity, &h.AvgBuyPrice, &h.CreatedAt, &h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (p *Postgres) GetHolding(ctx context.Context, userID, coinID string) (*Holding, error) {
	var h Holding
	err := p.db.QueryRow(ctx, `
		SELECT id, user_id, COALESCE(portfolio_id, ''), coin_id, quantity, avg_buy_price, created_at, updated_at
		FROM holdings
		WHERE user_id = $1 AND coin_id = $2
	`, userID, coinID).Scan(
		&h.ID, &h.UserID, &h.PortfolioID, &h.CoinID,
		&h.Quantity, &h.AvgBuyPrice, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

func (p *Postgres) UpsertHolding(ctx context.Context, h *Holding) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO holdings (id, user_id, portfolio_id, coin_id, quantity, avg_buy_price, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, coin_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    avg_buy_price = EXCLUDED.avg_buy_price,
		    updated_at = EXCLUDED.updated_at
	`, h.ID, h.UserID, h.PortfolioID, h.CoinID, h.Quantity, h.AvgBuyPrice, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteHolding(ctx context.Context, userID, coinID string) error {
	_, err := p.db.Exec(ctx, `
		DELETE FROM holdings WHERE user_id = $1 AND coin_id = $2
	`, userID, coinID)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

func (p *Postgres) InsertTransaction(ctx context.Context, tx *Transaction) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO transactions (id, user_id, portfolio_id, coin_id, type, quantity, price, fee, note, executed_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)
	`, tx.ID, tx.UserID, tx.PortfolioID, tx.CoinID, tx.Type, tx.Quantity, tx.Price, tx.Fee, tx.Note, tx.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (p *Postgres) ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, COALESCE(portfolio_id, ''), coin_id, type, quantity, price, fee, note, executed_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY executed_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var tx Transaction
		err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.PortfolioID, &tx.CoinID, &tx.Type,
			&tx.Quantity, &tx.Price, &tx.Fee, &tx.Note, &tx.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (p *Postgres) InsertSnapshot(ctx context.Context, s *Snapshot) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO portfolio_snapshots (id, user_id, total_value, total_cost, trigger_kind, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.UserID, s.TotalValue, s.TotalCost, s.Trigger, s.TakenAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) ListSnapshots(ctx context.Context, userID string, since time.Time) ([]Snapshot, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, total_value, total_cost, trigger_kind, taken_at
		FROM portfolio_snapshots
		WHERE user_id = $1 AND taken_at >= $2
		ORDER BY taken_at ASC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.UserID, &s.TotalValue, &s.TotalCost, &s.Trigger, &s.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func (p *Postgres) ListUsersWithHoldings(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT DISTINCT user_id FROM holdings WHERE quantity > 0
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

var _ Store = (*Postgres)(nil)
