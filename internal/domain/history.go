// internal/domain/history.go
package domain

import "time"

// SalePoint is one invoiced sale of a product. The bookkeeping export emits
// one row per invoice line, so a single day can carry several points.
type SalePoint struct {
	Date     time.Time `json:"date" db:"sale_date"`
	Quantity float64   `json:"quantity" db:"quantity"`
	Revenue  float64   `json:"revenue" db:"revenue"`
}

// StockPoint is an observed stock level on a date.
type StockPoint struct {
	Date     time.Time `json:"date" db:"stock_date"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// DemandStats summarizes a product's raw sales history over a window.
type DemandStats struct {
	ProductID     string    `json:"product_id"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Days          int       `json:"days"`
	TotalQuantity float64   `json:"total_quantity"`
	AvgDaily      float64   `json:"avg_daily"`
	StdDev        float64   `json:"std_dev"`
}

// IngestRun records one execution of a history import, for auditability.
type IngestRun struct {
	ID           int64      `json:"id" db:"id"`
	Source       string     `json:"source" db:"source"`
	FileName     string     `json:"file_name" db:"file_name"`
	FileModified *time.Time `json:"file_modified,omitempty" db:"file_modified"`
	RowsIngested int        `json:"rows_ingested" db:"rows_ingested"`
	Status       string     `json:"status" db:"status"`
	Error        string     `json:"error,omitempty" db:"error"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   time.Time  `json:"finished_at" db:"finished_at"`
}

// Ingest run statuses.
const (
	IngestStatusOK      = "ok"
	IngestStatusPartial = "partial"
	IngestStatusFailed  = "failed"
)
