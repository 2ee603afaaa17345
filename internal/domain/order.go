// internal/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks a purchase order draft through its paper trail.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderSubmitted OrderStatus = "submitted"
	OrderConfirmed OrderStatus = "confirmed"
)

// PurchaseOrderLine is one product on a draft purchase order. Money is kept
// in decimals so line totals sum exactly.
type PurchaseOrderLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	LineTotal decimal.Decimal `json:"line_total"`
	Urgency   ReorderUrgency  `json:"urgency"`
}

// PurchaseOrderDraft is a supplier order assembled from replenishment plans.
// Drafts are proposals for a human buyer, not bookings.
type PurchaseOrderDraft struct {
	Code         string              `json:"code"`
	SupplierID   string              `json:"supplier_id"`
	SupplierName string              `json:"supplier_name,omitempty"`
	Status       OrderStatus         `json:"status"`
	Currency     string              `json:"currency"`
	CreatedAt    time.Time           `json:"created_at"`
	Lines        []PurchaseOrderLine `json:"lines"`
	Total        decimal.Decimal     `json:"total"`
	Urgency      ReorderUrgency      `json:"urgency"`
	Notes        []string            `json:"notes,omitempty"`
}
