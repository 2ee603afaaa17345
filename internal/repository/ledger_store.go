// internal/repository/ledger_store.go
package repository

import (
	"context"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
)

// LedgerStore persists demand-context entries. Implementations must behave
// append-only: an entry is deactivated with a timestamp, never rewritten or
// deleted, so the reasoning trail survives corrections.
type LedgerStore interface {
	Append(ctx context.Context, entry *domain.ContextEntry) error
	Entry(ctx context.Context, id string) (*domain.ContextEntry, error)
	EntriesForProduct(ctx context.Context, productID string, includeInactive bool) ([]domain.ContextEntry, error)
	EntriesByType(ctx context.Context, t domain.EntryType) ([]domain.ContextEntry, error)
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)
}
