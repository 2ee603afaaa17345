// internal/service/order_service.go
package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/registry"
)

const (
	unassignedSupplier = "UNASSIGNED"
	defaultCurrency    = "USD"
)

// OrderService turns replenishment plans into purchase-order drafts, one
// per supplier, priced from the registry's quoted unit costs. Drafts are
// proposals for a buyer, never bookings.
type OrderService struct {
	registry *registry.Registry

	mu  sync.Mutex
	day string
	seq int
}

func NewOrderService(reg *registry.Registry) *OrderService {
	return &OrderService{registry: reg}
}

// BuildDrafts groups every plan with an order quantity by supplier and
// prices the lines. Products without a supplier on file land together on an
// unassigned draft so they are not silently dropped.
func (s *OrderService) BuildDrafts(plans []*domain.ReplenishmentPlan) []domain.PurchaseOrderDraft {
	bySupplier := make(map[string][]*domain.ReplenishmentPlan)
	for _, plan := range plans {
		if plan.RecommendedQuantity <= 0 {
			continue
		}
		supplierID := unassignedSupplier
		if sup, ok := s.registry.Supplier(plan.ProductID); ok && sup.SupplierID != "" {
			supplierID = sup.SupplierID
		}
		bySupplier[supplierID] = append(bySupplier[supplierID], plan)
	}

	supplierIDs := make([]string, 0, len(bySupplier))
	for id := range bySupplier {
		supplierIDs = append(supplierIDs, id)
	}
	sort.Strings(supplierIDs)

	now := time.Now().UTC()
	drafts := make([]domain.PurchaseOrderDraft, 0, len(supplierIDs))
	for _, supplierID := range supplierIDs {
		drafts = append(drafts, s.buildDraft(supplierID, bySupplier[supplierID], now))
	}

	return drafts
}

func (s *OrderService) buildDraft(supplierID string, plans []*domain.ReplenishmentPlan, now time.Time) domain.PurchaseOrderDraft {
	draft := domain.PurchaseOrderDraft{
		Code:       s.nextCode(now),
		SupplierID: supplierID,
		Status:     domain.OrderDraft,
		CreatedAt:  now,
		Urgency:    domain.UrgencyNone,
		Total:      decimal.Zero,
	}

	// Most urgent lines first; ties read in product order.
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Urgency.Rank() != plans[j].Urgency.Rank() {
			return plans[i].Urgency.Rank() > plans[j].Urgency.Rank()
		}

		return plans[i].ProductID < plans[j].ProductID
	})

	unpriced := 0
	for _, plan := range plans {
		unitCost := decimal.Zero
		if sup, ok := s.registry.Supplier(plan.ProductID); ok {
			unitCost = decimal.NewFromFloat(sup.UnitCost)
			if draft.SupplierName == "" {
				draft.SupplierName = sup.SupplierName
			}
			if draft.Currency == "" {
				draft.Currency = sup.Currency
			}
		}

		line := domain.PurchaseOrderLine{
			ProductID: plan.ProductID,
			Quantity:  plan.RecommendedQuantity,
			UnitCost:  unitCost,
			LineTotal: unitCost.Mul(decimal.NewFromInt(int64(plan.RecommendedQuantity))),
			Urgency:   plan.Urgency,
		}
		draft.Lines = append(draft.Lines, line)
		draft.Total = draft.Total.Add(line.LineTotal)
		draft.Urgency = domain.Escalate(draft.Urgency, plan.Urgency)
		if line.UnitCost.IsZero() {
			unpriced++
		}
	}

	if draft.Currency == "" {
		draft.Currency = defaultCurrency
	}
	if supplierID == unassignedSupplier {
		draft.Notes = append(draft.Notes, "no supplier on file for these products; assign one before sending")
	}
	if unpriced > 0 {
		draft.Notes = append(draft.Notes, fmt.Sprintf("%d line(s) have no unit cost on file", unpriced))
	}

	return draft
}

// nextCode issues PO-YYYYMMDD-NNNN codes, restarting the sequence each day.
func (s *OrderService) nextCode(now time.Time) string {
	stamp := now.Format("20060102")

	s.mu.Lock()
	defer s.mu.Unlock()
	if stamp != s.day {
		s.day = stamp
		s.seq = 0
	}
	s.seq++

	return fmt.Sprintf("PO-%s-%04d", stamp, s.seq)
}
