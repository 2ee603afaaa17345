// internal/domain/dashboard.go
package domain

import "time"

// DashboardFilter narrows the replenishment dashboard to a product subset
// or a point in time. The zero filter means "everything, today".
type DashboardFilter struct {
	ReferenceDate string   `json:"reference_date,omitempty"`
	Urgency       string   `json:"urgency,omitempty"`
	ProductIDs    []string `json:"product_ids,omitempty"`
}

// UrgencyCard is one roll-up tile: how many products sit at an urgency
// level and which ones.
type UrgencyCard struct {
	Urgency  ReorderUrgency `json:"urgency"`
	Label    string         `json:"label"`
	Count    int            `json:"count"`
	Products []string       `json:"products,omitempty"`
}

// AttentionItem is one row in the needs-attention table, ordered by how
// soon the product runs dry.
type AttentionItem struct {
	ProductID           string         `json:"product_id"`
	Urgency             ReorderUrgency `json:"urgency"`
	Action              ReorderAction  `json:"action"`
	DaysOfStock         float64        `json:"days_of_stock"`
	Available           float64        `json:"available"`
	ReorderPoint        int            `json:"reorder_point"`
	RecommendedQuantity int            `json:"recommended_quantity"`
	ClosureDeadline     *time.Time     `json:"closure_deadline,omitempty"`
	Notes               []string       `json:"notes,omitempty"`
}

// DashboardSummary aggregates the planner's view of the catalog.
type DashboardSummary struct {
	GeneratedAt       time.Time       `json:"generated_at"`
	ReferenceDate     time.Time       `json:"reference_date"`
	Products          int             `json:"products"`
	Cards             []UrgencyCard   `json:"cards"`
	NeedsAttention    []AttentionItem `json:"needs_attention"`
	NextClosure       *ClosureWindow  `json:"next_closure,omitempty"`
	ImminentDeadlines int             `json:"imminent_deadlines"`
	RecentIngests     []IngestRun     `json:"recent_ingests,omitempty"`
}
