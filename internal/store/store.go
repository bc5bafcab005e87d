// Package store persists bilingual opportunity records behind a keyed
// idempotent upsert, with Postgres and SQLite drivers.
package store

import (
	"context"
	"time"

	"github.com/fursa-app/opportunity-cli/internal/model"
)

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// UpsertOpportunity inserts or replaces one opportunity, keyed by its
	// record identifier. Upserting the same row twice is a no-op apart from
	// updated_at.
	UpsertOpportunity(ctx context.Context, row model.OpportunityRow) error

	// LastCreatedAt returns the most recent created_at across all stored
	// opportunities, or nil when the table is empty. The fetch stage uses it
	// to skip listing entries that were already ingested.
	LastCreatedAt(ctx context.Context) (*time.Time, error)

	// CountOpportunities reports the number of stored records.
	CountOpportunities(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
