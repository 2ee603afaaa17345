// internal/repository/history_repository.go
package repository

import (
	"context"
	"time"

	"github.com/mwidjaja/procura/internal/domain"
)

// HistoryRepository stores the sales and stock series the analysis engines
// read. Sales are kept as per-day totals per product, so re-ingesting the
// same export is idempotent.
type HistoryRepository interface {
	SalesHistory(ctx context.Context, productID string, from, to time.Time) ([]domain.SalePoint, error)
	StockHistory(ctx context.Context, productID string, from, to time.Time) ([]domain.StockPoint, error)
	ProductIDs(ctx context.Context) ([]string, error)

	UpsertDailySales(ctx context.Context, productID string, points []domain.SalePoint) (int, error)
	UpsertStockLevels(ctx context.Context, productID string, points []domain.StockPoint) (int, error)

	RecordIngestRun(ctx context.Context, run *domain.IngestRun) error
	RecentIngestRuns(ctx context.Context, limit int) ([]domain.IngestRun, error)
}
