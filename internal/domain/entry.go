// internal/domain/entry.go
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryType discriminates the kinds of demand-context entries the ledger
// accepts. Each kind has a matching detail struct.
type EntryType string

const (
	EntrySubstitution           EntryType = "substitution"
	EntryOneTimeOrder           EntryType = "one_time_order"
	EntryPromotion              EntryType = "promotion"
	EntrySupplyDisruption       EntryType = "supply_disruption"
	EntryProductNote            EntryType = "product_note"
	EntryRecurringCustomerOrder EntryType = "recurring_customer_order"
	EntrySubstituteRelationship EntryType = "substitute_relationship"
)

// Adjustment is a signed correction to a product's invoiced quantity.
// Positive delta means true demand was higher than invoices show,
// negative means invoices overstate recurring demand.
type Adjustment struct {
	ProductID string  `json:"product_id"`
	Delta     float64 `json:"delta"`
	Reason    string  `json:"reason"`
}

// EntryDetail is the kind-specific payload of a context entry.
type EntryDetail interface {
	EntryKind() EntryType
}

// SubstitutionDetail records that buyers of the original product bought
// the substitute while the original was out of stock.
type SubstitutionDetail struct {
	OriginalProductID   string  `json:"original_product_id"`
	SubstituteProductID string  `json:"substitute_product_id"`
	Quantity            float64 `json:"quantity"`
}

func (SubstitutionDetail) EntryKind() EntryType { return EntrySubstitution }

// OneTimeOrderDetail records a bulk purchase that will not recur.
type OneTimeOrderDetail struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Customer  string  `json:"customer,omitempty"`
}

func (OneTimeOrderDetail) EntryKind() EntryType { return EntryOneTimeOrder }

// PromotionDetail records estimated extra units sold during a promotion.
type PromotionDetail struct {
	ProductID      string     `json:"product_id"`
	UpliftQuantity float64    `json:"uplift_quantity"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
}

func (PromotionDetail) EntryKind() EntryType { return EntryPromotion }

// SupplyDisruptionDetail records sales lost while supply was interrupted.
type SupplyDisruptionDetail struct {
	ProductID          string     `json:"product_id"`
	EstimatedLostSales float64    `json:"estimated_lost_sales"`
	StartDate          time.Time  `json:"start_date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
}

func (SupplyDisruptionDetail) EntryKind() EntryType { return EntrySupplyDisruption }

// ProductNoteDetail is free-form planner context. It never adjusts demand.
type ProductNoteDetail struct {
	ProductID string `json:"product_id"`
	Note      string `json:"note"`
}

func (ProductNoteDetail) EntryKind() EntryType { return EntryProductNote }

// RecurringCustomerOrderDetail marks part of a product's demand as a known
// repeating customer order, so bulk draws are expected rather than anomalous.
type RecurringCustomerOrderDetail struct {
	ProductID    string  `json:"product_id"`
	Quantity     float64 `json:"quantity"`
	IntervalDays int     `json:"interval_days"`
	Customer     string  `json:"customer,omitempty"`
}

func (RecurringCustomerOrderDetail) EntryKind() EntryType { return EntryRecurringCustomerOrder }

// SubstituteRelationshipDetail declares that two products substitute for each
// other. The inference engine uses these pairs as analysis candidates.
type SubstituteRelationshipDetail struct {
	ProductID           string `json:"product_id"`
	SubstituteProductID string `json:"substitute_product_id"`
	Bidirectional       bool   `json:"bidirectional"`
	Note                string `json:"note,omitempty"`
}

func (SubstituteRelationshipDetail) EntryKind() EntryType { return EntrySubstituteRelationship }

// ContextEntry is one assertion in the demand-context ledger. Entries are
// append-only: corrections are made by deactivating an entry and recording a
// new one, never by mutating or deleting history.
type ContextEntry struct {
	ID            string       `json:"id" db:"id"`
	Type          EntryType    `json:"type" db:"entry_type"`
	EventDate     *time.Time   `json:"event_date,omitempty" db:"event_date"`
	Reason        string       `json:"reason" db:"reason"`
	Adjustments   []Adjustment `json:"adjustments"`
	Detail        EntryDetail  `json:"detail"`
	ProductIDs    []string     `json:"product_ids"`
	Active        bool         `json:"active" db:"active"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	DeactivatedAt *time.Time   `json:"deactivated_at,omitempty" db:"deactivated_at"`
}

// Touches reports whether the entry references the given product, either
// through an adjustment or through its product id list.
func (e *ContextEntry) Touches(productID string) bool {
	for _, id := range e.ProductIDs {
		if id == productID {
			return true
		}
	}
	for _, adj := range e.Adjustments {
		if adj.ProductID == productID {
			return true
		}
	}

	return false
}

// NetDelta sums the entry's adjustment deltas for one product.
func (e *ContextEntry) NetDelta(productID string) float64 {
	var net float64
	for _, adj := range e.Adjustments {
		if adj.ProductID == productID {
			net += adj.Delta
		}
	}

	return net
}

// InRange reports whether the entry's event date falls inside [from, to].
// Undated entries apply to every range; nil bounds are open-ended.
func (e *ContextEntry) InRange(from, to *time.Time) bool {
	if e.EventDate == nil {
		return true
	}
	if from != nil && e.EventDate.Before(*from) {
		return false
	}
	if to != nil && e.EventDate.After(*to) {
		return false
	}

	return true
}

// DecodeEntryDetail rebuilds the typed detail payload from its stored JSON
// form, dispatching on the entry type.
func DecodeEntryDetail(t EntryType, raw []byte) (EntryDetail, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty detail payload for entry type %q", t)
	}

	switch t {
	case EntrySubstitution:
		var d SubstitutionDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode substitution detail: %w", err)
		}
		return d, nil
	case EntryOneTimeOrder:
		var d OneTimeOrderDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode one-time order detail: %w", err)
		}
		return d, nil
	case EntryPromotion:
		var d PromotionDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode promotion detail: %w", err)
		}
		return d, nil
	case EntrySupplyDisruption:
		var d SupplyDisruptionDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode supply disruption detail: %w", err)
		}
		return d, nil
	case EntryProductNote:
		var d ProductNoteDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode product note detail: %w", err)
		}
		return d, nil
	case EntryRecurringCustomerOrder:
		var d RecurringCustomerOrderDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode recurring order detail: %w", err)
		}
		return d, nil
	case EntrySubstituteRelationship:
		var d SubstituteRelationshipDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("failed to decode substitute relationship detail: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown entry type %q", t)
	}
}

// AdjustmentLine is one entry's contribution to a product adjustment query.
type AdjustmentLine struct {
	EntryID   string     `json:"entry_id"`
	EntryType EntryType  `json:"entry_type"`
	EventDate *time.Time `json:"event_date,omitempty"`
	Delta     float64    `json:"delta"`
	Reason    string     `json:"reason"`
}

// AdjustmentReport is the net demand correction for a product over a range.
type AdjustmentReport struct {
	ProductID     string           `json:"product_id"`
	From          *time.Time       `json:"from,omitempty"`
	To            *time.Time       `json:"to,omitempty"`
	NetAdjustment float64          `json:"net_adjustment"`
	Lines         []AdjustmentLine `json:"lines"`
}

// ContextSummary aggregates everything the ledger knows about one product.
type ContextSummary struct {
	ProductID          string                         `json:"product_id"`
	TotalEntries       int                            `json:"total_entries"`
	EntriesByType      map[EntryType]int              `json:"entries_by_type"`
	NetAdjustment      float64                        `json:"net_adjustment"`
	SuppressedSales    float64                        `json:"suppressed_sales"`
	InflatedSales      float64                        `json:"inflated_sales"`
	Notes              []string                       `json:"notes,omitempty"`
	SubstituteProducts []string                       `json:"substitute_products,omitempty"`
	RecurringOrders    []RecurringCustomerOrderDetail `json:"recurring_orders,omitempty"`
	DemandTrend        string                         `json:"demand_trend"`
}

// Demand trend markers reported by the ledger summary.
const (
	DemandHigherThanInvoiced = "higher_than_invoiced"
	DemandLowerThanInvoiced  = "lower_than_invoiced"
	DemandAligned            = "aligned"
)
