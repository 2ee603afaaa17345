// internal/service/export_service.go
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/storage"
)

// ExportService writes batch planning output as CSV for the buying team's
// spreadsheets and archives a copy to object storage when one is wired.
type ExportService struct {
	dir   string
	store storage.ObjectStorage
}

func NewExportService(dir string, store storage.ObjectStorage) *ExportService {
	if dir == "" {
		dir = "data/exports"
	}

	return &ExportService{dir: dir, store: store}
}

// ExportPlans renders one CSV row per planned product and returns the local
// path. The archive upload under exports/YYYYMMDD/ is best effort; the
// local file is the deliverable.
func (s *ExportService) ExportPlans(ctx context.Context, result *domain.BatchPlanResult) (string, error) {
	if result == nil || len(result.Plans) == 0 {
		return "", fmt.Errorf("nothing to export")
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("replenishment_%s.csv", now.Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := writePlansCSV(path, result.Plans); err != nil {
		return "", err
	}
	log.Info().Str("path", path).Int("rows", len(result.Plans)).Msg("export: plans written")

	if s.store != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return path, fmt.Errorf("failed to re-read export for archiving: %w", err)
		}
		key := fmt.Sprintf("exports/%s/%s", now.Format("20060102"), name)
		if err := s.store.UploadObject(ctx, key, data); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("export: archive upload failed")
		} else {
			log.Info().Str("key", key).Msg("export: archived to object storage")
		}
	}

	return path, nil
}

func writePlansCSV(path string, plans []*domain.ReplenishmentPlan) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"product_id", "urgency", "action",
		"avg_daily_demand", "adjusted_daily_demand", "net_adjustment", "inference_adjustment",
		"current_stock", "pending_orders", "channel_reserve", "available", "days_of_stock",
		"safety_stock", "reorder_point", "eoq", "recommended_quantity",
		"lead_time_days", "shipping_mode", "closure_deadline", "closure_order_qty", "notes",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, plan := range plans {
		closureDeadline, closureQty := "", ""
		if plan.CNY != nil {
			closureDeadline = plan.CNY.OrderDeadline.Format("2006-01-02")
			closureQty = strconv.Itoa(plan.CNY.OrderQuantity)
		}
		record := []string{
			plan.ProductID,
			string(plan.Urgency),
			string(plan.Action),
			fmt.Sprintf("%.2f", plan.AvgDailyDemand),
			fmt.Sprintf("%.2f", plan.AdjustedDailyDemand),
			fmt.Sprintf("%.2f", plan.NetAdjustment),
			fmt.Sprintf("%.2f", plan.InferenceAdjustment),
			fmt.Sprintf("%.0f", plan.CurrentStock),
			fmt.Sprintf("%.0f", plan.PendingOrders),
			fmt.Sprintf("%.0f", plan.ChannelReserve),
			fmt.Sprintf("%.0f", plan.Available),
			formatDaysOfStock(plan.DaysOfStock),
			strconv.Itoa(plan.SafetyStock),
			strconv.Itoa(plan.ReorderPoint),
			strconv.Itoa(plan.EOQ),
			strconv.Itoa(plan.RecommendedQuantity),
			strconv.Itoa(plan.LeadTime.TotalDays),
			string(plan.LeadTime.Mode),
			closureDeadline,
			closureQty,
			strings.Join(plan.Notes, "; "),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

func formatDaysOfStock(days float64) string {
	if days >= domain.DaysOfStockInfinite {
		return "unlimited"
	}

	return fmt.Sprintf("%.1f", days)
}
