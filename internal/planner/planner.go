// internal/planner/planner.go
package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/mwidjaja/procura/internal/calendar"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/pkg/logger"
)

// Config carries the planner's tunable assumptions. Lead-time legs default
// to the numbers the purchasing team plans with for China-to-EU imports.
type Config struct {
	ServiceLevel            float64
	HoldingCostRate         float64
	OrderingCost            float64
	OrderProcessingDays     int
	CustomsClearanceDays    int
	ReceivingDays           int
	BufferDays              int
	DefaultSupplierLeadDays int
	SeaFreightDays          int
	RailFreightDays         int
	AirFreightDays          int
	CNYSafetyMultiplier     float64
}

// DefaultConfig returns the standard planning assumptions.
func DefaultConfig() Config {
	return Config{
		ServiceLevel:            0.95,
		HoldingCostRate:         0.25,
		OrderingCost:            150,
		OrderProcessingDays:     3,
		CustomsClearanceDays:    5,
		ReceivingDays:           2,
		BufferDays:              5,
		DefaultSupplierLeadDays: 30,
		SeaFreightDays:          35,
		RailFreightDays:         20,
		AirFreightDays:          7,
		CNYSafetyMultiplier:     1.3,
	}
}

// zScores maps a service level to its one-sided normal quantile. Unknown
// levels fall back to the 0.95 entry.
var zScores = map[int]float64{
	90: 1.28,
	95: 1.65,
	98: 2.05,
	99: 2.33,
}

const defaultZ = 1.65

// ZScore resolves a service level (0..1) to its safety factor.
func ZScore(serviceLevel float64) float64 {
	key := int(math.Round(serviceLevel * 100))
	if z, ok := zScores[key]; ok {
		return z
	}

	return defaultZ
}

// Planner turns reconciled demand numbers into order timing and quantities:
// safety stock, reorder point, order size and the coverage needed to ride
// out the next factory closure.
type Planner struct {
	cfg Config
	cal calendar.Service
	log zerolog.Logger
}

// New builds a planner. Zero config fields are backfilled with defaults; a
// nil calendar simply disables closure planning.
func New(cfg Config, cal calendar.Service) *Planner {
	defaults := DefaultConfig()
	if cfg.ServiceLevel <= 0 {
		cfg.ServiceLevel = defaults.ServiceLevel
	}
	if cfg.HoldingCostRate <= 0 {
		cfg.HoldingCostRate = defaults.HoldingCostRate
	}
	if cfg.OrderingCost <= 0 {
		cfg.OrderingCost = defaults.OrderingCost
	}
	if cfg.OrderProcessingDays <= 0 {
		cfg.OrderProcessingDays = defaults.OrderProcessingDays
	}
	if cfg.CustomsClearanceDays <= 0 {
		cfg.CustomsClearanceDays = defaults.CustomsClearanceDays
	}
	if cfg.ReceivingDays <= 0 {
		cfg.ReceivingDays = defaults.ReceivingDays
	}
	if cfg.BufferDays < 0 {
		cfg.BufferDays = defaults.BufferDays
	}
	if cfg.DefaultSupplierLeadDays <= 0 {
		cfg.DefaultSupplierLeadDays = defaults.DefaultSupplierLeadDays
	}
	if cfg.SeaFreightDays <= 0 {
		cfg.SeaFreightDays = defaults.SeaFreightDays
	}
	if cfg.RailFreightDays <= 0 {
		cfg.RailFreightDays = defaults.RailFreightDays
	}
	if cfg.AirFreightDays <= 0 {
		cfg.AirFreightDays = defaults.AirFreightDays
	}
	if cfg.CNYSafetyMultiplier <= 0 {
		cfg.CNYSafetyMultiplier = defaults.CNYSafetyMultiplier
	}

	return &Planner{cfg: cfg, cal: cal, log: logger.Component("planner")}
}

// ShippingDays returns the freight leg for a mode. Unset modes ship by sea,
// which is how nearly everything moves.
func (p *Planner) ShippingDays(mode domain.ShippingMode) int {
	switch mode {
	case domain.ShipRail:
		return p.cfg.RailFreightDays
	case domain.ShipAir:
		return p.cfg.AirFreightDays
	default:
		return p.cfg.SeaFreightDays
	}
}

// LeadTime itemizes the full span between placing an order and sellable
// stock: processing, factory lead, freight, customs, receiving and buffer.
func (p *Planner) LeadTime(supplierLeadDays int, mode domain.ShippingMode) domain.LeadTimeBreakdown {
	if supplierLeadDays <= 0 {
		supplierLeadDays = p.cfg.DefaultSupplierLeadDays
	}
	if mode == "" {
		mode = domain.ShipSea
	}

	lt := domain.LeadTimeBreakdown{
		Mode:                 mode,
		OrderProcessingDays:  p.cfg.OrderProcessingDays,
		SupplierLeadDays:     supplierLeadDays,
		ShippingDays:         p.ShippingDays(mode),
		CustomsClearanceDays: p.cfg.CustomsClearanceDays,
		ReceivingDays:        p.cfg.ReceivingDays,
		BufferDays:           p.cfg.BufferDays,
	}
	lt.TotalDays = lt.OrderProcessingDays + lt.SupplierLeadDays + lt.ShippingDays +
		lt.CustomsClearanceDays + lt.ReceivingDays + lt.BufferDays

	return lt
}

// SafetyStock is the buffer against demand variability over the lead time:
// ceil(z x stddev x sqrt(leadDays)).
func (p *Planner) SafetyStock(demandStdDev float64, leadDays int, serviceLevel float64) int {
	if demandStdDev <= 0 || leadDays <= 0 {
		return 0
	}
	if serviceLevel <= 0 {
		serviceLevel = p.cfg.ServiceLevel
	}

	return int(math.Ceil(ZScore(serviceLevel) * demandStdDev * math.Sqrt(float64(leadDays))))
}

// ReorderPoint is the stock level at which a new order must be placed:
// expected consumption over the lead time plus safety stock.
func (p *Planner) ReorderPoint(avgDaily float64, leadDays int, safetyStock int) int {
	if avgDaily < 0 {
		avgDaily = 0
	}

	return int(math.Ceil(avgDaily*float64(leadDays))) + safetyStock
}

// EOQ is the classic economic order quantity, rounded up. It returns 0 when
// cost inputs are missing rather than dividing by zero.
func (p *Planner) EOQ(annualDemand, orderingCost, unitCost, holdingRate float64) int {
	if annualDemand <= 0 || orderingCost <= 0 || unitCost <= 0 || holdingRate <= 0 {
		return 0
	}

	return int(math.Ceil(math.Sqrt(2 * annualDemand * orderingCost / (unitCost * holdingRate))))
}

// DaysOfStock is how long on-hand stock lasts at the given daily rate. With
// no measured demand the answer is the infinite sentinel when any stock is
// on hand, 0 otherwise.
func DaysOfStock(stock, avgDaily float64) float64 {
	if avgDaily <= 0 {
		if stock > 0 {
			return domain.DaysOfStockInfinite
		}
		return 0
	}
	if stock <= 0 {
		return 0
	}

	return stock / avgDaily
}

// ClosurePlan works out the coverage order for the next factory closure:
// the latest date an order can still ship ahead of the shutdown, and the
// quantity needed to sell through until production fully recovers.
func (p *Planner) ClosurePlan(ref time.Time, avgDaily, available float64, lead domain.LeadTimeBreakdown) *domain.CNYPlan {
	if p.cal == nil {
		return nil
	}
	window, ok := p.cal.NextClosure(ref)
	if !ok {
		return nil
	}

	deadline := window.Start.AddDate(0, 0, -(lead.ShippingDays + lead.SupplierLeadDays))
	daysUntilDeadline := daysBetween(ref, deadline)
	daysUntilRecovery := daysBetween(ref, window.FullRecovery)

	coverageDays := daysUntilRecovery + lead.TotalDays
	coverageDemand := avgDaily * float64(coverageDays) * p.cfg.CNYSafetyMultiplier

	orderQty := 0
	if shortfall := coverageDemand - available; shortfall > 0 {
		orderQty = int(math.Ceil(shortfall))
	}

	return &domain.CNYPlan{
		Window:                window,
		OrderDeadline:         deadline,
		DaysUntilDeadline:     daysUntilDeadline,
		Urgency:               domain.DeadlineUrgencyFor(daysUntilDeadline),
		DaysUntilFullRecovery: daysUntilRecovery,
		CoverageDays:          coverageDays,
		SafetyMultiplier:      p.cfg.CNYSafetyMultiplier,
		CoverageDemand:        coverageDemand,
		OrderQuantity:         orderQty,
	}
}

// Inputs are the fully resolved numbers Plan composes. The planning service
// assembles them from history, ledger adjustments and registries; tests
// feed them directly.
type Inputs struct {
	ProductID           string
	AvgDailyDemand      float64
	RawDailyDemand      float64
	DemandStdDev        float64
	NetAdjustment       float64
	InferenceAdjustment float64
	CurrentStock        float64
	PendingOrders       float64
	ChannelReserve      float64
	ServiceLevel        float64
	SupplierLeadDays    int
	ShippingMode        domain.ShippingMode
	UnitCost            float64
	ReferenceDate       time.Time
}

// Plan produces the complete replenishment picture for one product. The
// result carries every intermediate number so a buyer can follow the
// reasoning without rerunning anything.
func (p *Planner) Plan(in Inputs) *domain.ReplenishmentPlan {
	ref := in.ReferenceDate
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	serviceLevel := in.ServiceLevel
	if serviceLevel <= 0 {
		serviceLevel = p.cfg.ServiceLevel
	}

	lead := p.LeadTime(in.SupplierLeadDays, in.ShippingMode)
	safetyStock := p.SafetyStock(in.DemandStdDev, lead.TotalDays, serviceLevel)
	reorderPoint := p.ReorderPoint(in.AvgDailyDemand, lead.TotalDays, safetyStock)
	eoq := p.EOQ(in.AvgDailyDemand*365, p.cfg.OrderingCost, in.UnitCost, p.cfg.HoldingCostRate)

	sellable := in.CurrentStock - in.ChannelReserve
	available := sellable + in.PendingOrders

	plan := &domain.ReplenishmentPlan{
		ProductID:           in.ProductID,
		GeneratedAt:         time.Now().UTC(),
		AvgDailyDemand:      in.RawDailyDemand,
		AdjustedDailyDemand: in.AvgDailyDemand,
		DemandStdDev:        in.DemandStdDev,
		NetAdjustment:       in.NetAdjustment,
		InferenceAdjustment: in.InferenceAdjustment,
		ChannelReserve:      in.ChannelReserve,
		LeadTime:            lead,
		ServiceLevel:        serviceLevel,
		ZScore:              ZScore(serviceLevel),
		SafetyStock:         safetyStock,
		ReorderPoint:        reorderPoint,
		EOQ:                 eoq,
		CurrentStock:        in.CurrentStock,
		PendingOrders:       in.PendingOrders,
		Available:           available,
		DaysOfStock:         DaysOfStock(sellable, in.AvgDailyDemand),
	}

	if in.ChannelReserve > 0 {
		plan.Notes = append(plan.Notes, fmt.Sprintf("%.0f units held back as channel safety reserve", in.ChannelReserve))
	}

	if in.AvgDailyDemand <= 0 {
		plan.Urgency = domain.UrgencyNone
		plan.Action = domain.ActionNone
		plan.Notes = append(plan.Notes, "no measured demand; nothing to order")
		return plan
	}

	plan.Urgency = reorderUrgency(available, safetyStock, reorderPoint)

	plan.CNY = p.ClosurePlan(ref, in.AvgDailyDemand, available, lead)
	if plan.CNY != nil && plan.CNY.Urgency.Imminent() {
		if escalated := domain.Escalate(plan.Urgency, domain.UrgencyHigh); escalated != plan.Urgency {
			plan.Urgency = escalated
			plan.Notes = append(plan.Notes, fmt.Sprintf("escalated: %s order deadline is %d days away", plan.CNY.Window.Name, plan.CNY.DaysUntilDeadline))
		}
	}
	plan.Action = domain.ActionFor(plan.Urgency)

	plan.RecommendedQuantity = p.recommendQuantity(plan, available)
	if eoq == 0 && in.UnitCost <= 0 {
		plan.Notes = append(plan.Notes, "unit cost unknown; EOQ not computed")
	}
	if plan.CNY != nil && plan.CNY.Urgency == domain.DeadlineMissed && plan.CNY.OrderQuantity > 0 {
		plan.Notes = append(plan.Notes, fmt.Sprintf("%s order deadline already passed; consider air freight", plan.CNY.Window.Name))
	}

	p.log.Debug().
		Str("product", in.ProductID).
		Int("reorder_point", reorderPoint).
		Int("safety_stock", safetyStock).
		Str("urgency", string(plan.Urgency)).
		Int("recommended", plan.RecommendedQuantity).
		Msg("replenishment plan computed")

	return plan
}

// reorderUrgency grades available stock against the control levels. The
// monitor band sits 20% above the reorder point.
func reorderUrgency(available float64, safetyStock, reorderPoint int) domain.ReorderUrgency {
	switch {
	case available <= float64(safetyStock):
		return domain.UrgencyCritical
	case available <= float64(reorderPoint):
		return domain.UrgencyHigh
	case available <= 1.2*float64(reorderPoint):
		return domain.UrgencyModerate
	default:
		return domain.UrgencyNone
	}
}

// recommendQuantity sizes the order. A reorder covers at least the deficit
// to the reorder point and at least one economic order; closure coverage
// overrides both once its deadline is within planning range.
func (p *Planner) recommendQuantity(plan *domain.ReplenishmentPlan, available float64) int {
	base := 0
	if plan.Action == domain.ActionOrderImmediately || plan.Action == domain.ActionOrderSoon {
		base = plan.EOQ
		if deficit := int(math.Ceil(float64(plan.ReorderPoint) - available)); deficit > base {
			base = deficit
		}
	}

	if plan.CNY != nil && plan.CNY.Urgency != domain.DeadlineLow && plan.CNY.OrderQuantity > base {
		return plan.CNY.OrderQuantity
	}

	return base
}

func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	return int(bd.Sub(ad) / (24 * time.Hour))
}
