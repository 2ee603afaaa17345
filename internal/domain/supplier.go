// internal/domain/supplier.go
package domain

// SupplierProfile is a product's sourcing terms. Profiles are keyed by
// product because the same factory quotes different terms per article.
type SupplierProfile struct {
	ProductID     string       `json:"product_id" db:"product_id"`
	SupplierID    string       `json:"supplier_id" db:"supplier_id"`
	SupplierName  string       `json:"supplier_name" db:"supplier_name"`
	LeadTimeDays  int          `json:"lead_time_days" db:"lead_time_days"`
	UnitCost      float64      `json:"unit_cost" db:"unit_cost"`
	Currency      string       `json:"currency" db:"currency"`
	PreferredMode ShippingMode `json:"preferred_mode" db:"preferred_mode"`
	Reliability   float64      `json:"reliability" db:"reliability"`
}
