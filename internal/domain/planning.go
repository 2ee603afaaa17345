// internal/domain/planning.go
package domain

import "time"

// ShippingMode selects the freight leg of the lead time.
type ShippingMode string

const (
	ShipSea  ShippingMode = "sea"
	ShipRail ShippingMode = "rail"
	ShipAir  ShippingMode = "air"
)

// DaysOfStockInfinite marks a product whose stock never depletes because its
// measured daily demand is zero. Kept finite so results stay JSON-safe.
const DaysOfStockInfinite = float64(1 << 31)

// LeadTimeBreakdown itemizes every leg between placing an order and having
// sellable stock on the shelf.
type LeadTimeBreakdown struct {
	Mode                 ShippingMode `json:"mode"`
	OrderProcessingDays  int          `json:"order_processing_days"`
	SupplierLeadDays     int          `json:"supplier_lead_days"`
	ShippingDays         int          `json:"shipping_days"`
	CustomsClearanceDays int          `json:"customs_clearance_days"`
	ReceivingDays        int          `json:"receiving_days"`
	BufferDays           int          `json:"buffer_days"`
	TotalDays            int          `json:"total_days"`
}

// ClosureWindow is one factory closure with its ramp-down and recovery
// phases resolved to concrete dates.
type ClosureWindow struct {
	Name         string    `json:"name"`
	ClosureDate  time.Time `json:"closure_date"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	FullRecovery time.Time `json:"full_recovery"`
}

// CNYPlan is the coverage order a product needs to survive the next factory
// closure around Chinese New Year.
type CNYPlan struct {
	Window                ClosureWindow   `json:"window"`
	OrderDeadline         time.Time       `json:"order_deadline"`
	DaysUntilDeadline     int             `json:"days_until_deadline"`
	Urgency               DeadlineUrgency `json:"urgency"`
	DaysUntilFullRecovery int             `json:"days_until_full_recovery"`
	CoverageDays          int             `json:"coverage_days"`
	SafetyMultiplier      float64         `json:"safety_multiplier"`
	CoverageDemand        float64         `json:"coverage_demand"`
	OrderQuantity         int             `json:"order_quantity"`
}

// PlanRequest asks for a replenishment plan for one product. Zero-valued
// fields fall back to configured defaults or registry data.
type PlanRequest struct {
	ProductID        string       `json:"product_id"`
	CurrentStock     float64      `json:"current_stock"`
	PendingOrders    float64      `json:"pending_orders"`
	AvgDailyDemand   float64      `json:"avg_daily_demand,omitempty"`
	DemandStdDev     float64      `json:"demand_std_dev,omitempty"`
	ServiceLevel     float64      `json:"service_level,omitempty"`
	ShippingMode     ShippingMode `json:"shipping_mode,omitempty"`
	UnitCost         float64      `json:"unit_cost,omitempty"`
	ReferenceDate    *time.Time   `json:"reference_date,omitempty"`
	IncludeInference bool         `json:"include_inference,omitempty"`
	IncludePacking   bool         `json:"include_packing,omitempty"`
}

// ReplenishmentPlan is a fully self-describing planning result: every number
// that went into the recommendation is carried alongside it.
type ReplenishmentPlan struct {
	ProductID           string            `json:"product_id"`
	GeneratedAt         time.Time         `json:"generated_at"`
	AvgDailyDemand      float64           `json:"avg_daily_demand"`
	AdjustedDailyDemand float64           `json:"adjusted_daily_demand"`
	DemandStdDev        float64           `json:"demand_std_dev"`
	NetAdjustment       float64           `json:"net_adjustment"`
	InferenceAdjustment float64           `json:"inference_adjustment"`
	ChannelReserve      float64           `json:"channel_reserve"`
	LeadTime            LeadTimeBreakdown `json:"lead_time"`
	ServiceLevel        float64           `json:"service_level"`
	ZScore              float64           `json:"z_score"`
	SafetyStock         int               `json:"safety_stock"`
	ReorderPoint        int               `json:"reorder_point"`
	EOQ                 int               `json:"eoq"`
	CurrentStock        float64           `json:"current_stock"`
	PendingOrders       float64           `json:"pending_orders"`
	Available           float64           `json:"available"`
	DaysOfStock         float64           `json:"days_of_stock"`
	Urgency             ReorderUrgency    `json:"urgency"`
	Action              ReorderAction     `json:"action"`
	CNY                 *CNYPlan          `json:"cny,omitempty"`
	RecommendedQuantity int               `json:"recommended_quantity"`
	Packing             *PackResult       `json:"packing,omitempty"`
	Notes               []string          `json:"notes,omitempty"`
}

// PlanSummary is the dashboard roll-up across a set of products.
type PlanSummary struct {
	GeneratedAt   time.Time              `json:"generated_at"`
	Products      int                    `json:"products"`
	ByUrgency     map[ReorderUrgency]int `json:"by_urgency"`
	OrderNow      []string               `json:"order_now,omitempty"`
	OrderSoon     []string               `json:"order_soon,omitempty"`
	NextCNYWindow *ClosureWindow         `json:"next_cny_window,omitempty"`
}

// PlanFailure records one product that could not be planned in a batch run.
type PlanFailure struct {
	ProductID string `json:"product_id"`
	Error     string `json:"error"`
}

// BatchPlanResult is the outcome of planning many products at once. One
// product's failure never voids the others; it lands in Failures instead.
type BatchPlanResult struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Plans       []*ReplenishmentPlan `json:"plans"`
	Failures    []PlanFailure        `json:"failures,omitempty"`
	Summary     *PlanSummary         `json:"summary"`
}
