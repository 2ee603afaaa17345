// internal/repository/memory/ledger_store.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
)

// LedgerStore keeps context entries in process memory. It backs the ledger
// when no database is wired and doubles as the test fixture store. The
// append-only contract is the same as the postgres store: deactivation
// stamps a timestamp, nothing is ever removed.
type LedgerStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.ContextEntry
	order   []string
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{entries: make(map[string]*domain.ContextEntry)}
}

func (s *LedgerStore) Append(_ context.Context, entry *domain.ContextEntry) error {
	if entry == nil || entry.ID == "" {
		return fmt.Errorf("entry must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("entry %s already recorded", entry.ID)
	}
	clone := cloneEntry(entry)
	s.entries[entry.ID] = clone
	s.order = append(s.order, entry.ID)

	return nil
}

func (s *LedgerStore) Entry(_ context.Context, id string) (*domain.ContextEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}

	return cloneEntry(entry), nil
}

func (s *LedgerStore) EntriesForProduct(_ context.Context, productID string, includeInactive bool) ([]domain.ContextEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ContextEntry
	for _, id := range s.order {
		entry := s.entries[id]
		if !entry.Touches(productID) {
			continue
		}
		if !entry.Active && !includeInactive {
			continue
		}
		out = append(out, *cloneEntry(entry))
	}

	return out, nil
}

func (s *LedgerStore) EntriesByType(_ context.Context, t domain.EntryType) ([]domain.ContextEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ContextEntry
	for _, id := range s.order {
		entry := s.entries[id]
		if entry.Type != t || !entry.Active {
			continue
		}
		out = append(out, *cloneEntry(entry))
	}

	return out, nil
}

func (s *LedgerStore) Deactivate(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || !entry.Active {
		return false, nil
	}
	entry.Active = false
	deactivated := at
	entry.DeactivatedAt = &deactivated

	return true, nil
}

// cloneEntry copies an entry deeply enough that callers can't mutate the
// stored version through returned slices or time pointers.
func cloneEntry(e *domain.ContextEntry) *domain.ContextEntry {
	clone := *e
	if e.Adjustments != nil {
		clone.Adjustments = append([]domain.Adjustment(nil), e.Adjustments...)
	}
	if e.ProductIDs != nil {
		clone.ProductIDs = append([]string(nil), e.ProductIDs...)
	}
	if e.EventDate != nil {
		d := *e.EventDate
		clone.EventDate = &d
	}
	if e.DeactivatedAt != nil {
		d := *e.DeactivatedAt
		clone.DeactivatedAt = &d
	}

	return &clone
}
