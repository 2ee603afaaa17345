// internal/domain/requests.go
package domain

import "time"

// RecordSubstitutionRequest asserts that sales moved from one product to
// another during a stockout.
type RecordSubstitutionRequest struct {
	Date                time.Time `json:"date"`
	OriginalProductID   string    `json:"original_product_id"`
	SubstituteProductID string    `json:"substitute_product_id"`
	Quantity            float64   `json:"quantity"`
	Reason              string    `json:"reason"`
}

// RecordOneTimeOrderRequest marks a bulk purchase that will not recur.
type RecordOneTimeOrderRequest struct {
	Date      time.Time `json:"date"`
	ProductID string    `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	Customer  string    `json:"customer,omitempty"`
	Reason    string    `json:"reason"`
}

// RecordPromotionRequest records promotion-driven uplift to discount later.
type RecordPromotionRequest struct {
	ProductID      string     `json:"product_id"`
	UpliftQuantity float64    `json:"uplift_quantity"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Reason         string     `json:"reason"`
}

// RecordSupplyDisruptionRequest records sales lost to a supply interruption.
type RecordSupplyDisruptionRequest struct {
	ProductID          string     `json:"product_id"`
	EstimatedLostSales float64    `json:"estimated_lost_sales"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	Reason             string     `json:"reason"`
}

// RecordProductNoteRequest attaches free-form planner context to a product.
type RecordProductNoteRequest struct {
	ProductID string `json:"product_id"`
	Note      string `json:"note"`
}

// RecordRecurringOrderRequest registers a known repeating customer order.
type RecordRecurringOrderRequest struct {
	ProductID    string  `json:"product_id"`
	Quantity     float64 `json:"quantity"`
	IntervalDays int     `json:"interval_days"`
	Customer     string  `json:"customer,omitempty"`
	Reason       string  `json:"reason"`
}

// RecordSubstituteRelationshipRequest declares two products as substitutes.
type RecordSubstituteRelationshipRequest struct {
	ProductID           string `json:"product_id"`
	SubstituteProductID string `json:"substitute_product_id"`
	Bidirectional       bool   `json:"bidirectional"`
	Note                string `json:"note,omitempty"`
}

// AdjustmentQuery filters a product's adjustment lookup by date range.
type AdjustmentQuery struct {
	ProductID string     `json:"product_id"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
}

// AnalysisRequest asks whether stockouts of the primary product inflated
// the substitute's sales over a history window.
type AnalysisRequest struct {
	PrimaryProductID    string     `json:"primary_product_id"`
	SubstituteProductID string     `json:"substitute_product_id"`
	From                *time.Time `json:"from,omitempty"`
	To                  *time.Time `json:"to,omitempty"`
}
