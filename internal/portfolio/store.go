package portfolio

import (
	"context"
	"time"
)

// Store is the persistence surface the portfolio service depends on.
// Implementations: Postgres (production) and MemoryStore (tests, no-database
// development mode).
type Store interface {
	ListHoldings(ctx context.Context, userID string) ([]Holding, error)
	GetHolding(ctx context.Context, userID, coinID string) (*Holding, error)
	UpsertHolding(ctx context.Context, h *Holding) error
	DeleteHolding(ctx context.Context, userID, coinID string) error

	InsertTransaction(ctx context.Context, tx *Transaction) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)

	InsertSnapshot(ctx context.Context, s *Snapshot) error
	// ListSnapshots returns snapshots taken at or after since, oldest first.
	ListSnapshots(ctx context.Context, userID string, since time.Time) ([]Snapshot, error)

	// ListUsersWithHoldings feeds the scheduled snapshot pass.
	ListUsersWithHoldings(ctx context.Context) ([]string, error)
}
