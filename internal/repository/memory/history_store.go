// internal/repository/memory/history_store.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
)

// HistoryStore is the in-memory counterpart of the postgres history
// repository, used in tests and database-less runs. Sales are collapsed to
// one point per day per product, matching the persistent schema.
type HistoryStore struct {
	mu     sync.RWMutex
	sales  map[string]map[string]domain.SalePoint
	stock  map[string]map[string]domain.StockPoint
	runs   []domain.IngestRun
	nextID int64
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		sales:  make(map[string]map[string]domain.SalePoint),
		stock:  make(map[string]map[string]domain.StockPoint),
		nextID: 1,
	}
}

const dayKey = "2006-01-02"

func (s *HistoryStore) SalesHistory(_ context.Context, productID string, from, to time.Time) ([]domain.SalePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SalePoint
	for _, p := range s.sales[productID] {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}

func (s *HistoryStore) StockHistory(_ context.Context, productID string, from, to time.Time) ([]domain.StockPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StockPoint
	for _, p := range s.stock[productID] {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}

func (s *HistoryStore) ProductIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for id := range s.sales {
		seen[id] = true
	}
	for id := range s.stock {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

func (s *HistoryStore) UpsertDailySales(_ context.Context, productID string, points []domain.SalePoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sales[productID] == nil {
		s.sales[productID] = make(map[string]domain.SalePoint)
	}
	for _, p := range points {
		s.sales[productID][p.Date.Format(dayKey)] = p
	}

	return len(points), nil
}

func (s *HistoryStore) UpsertStockLevels(_ context.Context, productID string, points []domain.StockPoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stock[productID] == nil {
		s.stock[productID] = make(map[string]domain.StockPoint)
	}
	for _, p := range points {
		s.stock[productID][p.Date.Format(dayKey)] = p
	}

	return len(points), nil
}

func (s *HistoryStore) RecordIngestRun(_ context.Context, run *domain.IngestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = s.nextID
	s.nextID++
	s.runs = append(s.runs, *run)

	return nil
}

func (s *HistoryStore) RecentIngestRuns(_ context.Context, limit int) ([]domain.IngestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]domain.IngestRun, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}

	return out, nil
}
