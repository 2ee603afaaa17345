// internal/registry/csv.go
package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mwidjaja/procura/internal/domain"
)

// Reference data file names looked up inside the registry directory.
const (
	moqFile       = "moq.csv"
	dimensionFile = "dimensions.csv"
	supplierFile  = "suppliers.csv"
	reserveFile   = "reserves.csv"
)

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// LoadDir loads every known reference file present in dir. Missing files
// are skipped; a malformed file aborts the load.
func (r *Registry) LoadDir(dir string) error {
	loaders := []struct {
		file string
		load func(string) (int, error)
	}{
		{moqFile, r.LoadMOQCSV},
		{dimensionFile, r.LoadDimensionsCSV},
		{supplierFile, r.LoadSuppliersCSV},
		{reserveFile, r.LoadReservesCSV},
	}

	for _, l := range loaders {
		path := filepath.Join(dir, l.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		n, err := l.load(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", l.file, err)
		}
		r.log.Info().Str("file", l.file).Int("records", n).Msg("reference data loaded")
	}

	return nil
}

type csvTable struct {
	header []string
	rows   [][]string
}

func (t csvTable) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

func readCSVTable(path string) (csvTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return csvTable{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return csvTable{}, fmt.Errorf("failed to read header: %w", err)
	}

	table := csvTable{header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return csvTable{}, err
		}
		table.rows = append(table.rows, record)
	}

	return table, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func fieldFloat(record []string, idx int) float64 {
	v := field(record, idx)
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, ",", "")
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func fieldInt(record []string, idx int) int {
	return int(fieldFloat(record, idx))
}

// LoadMOQCSV loads supplier order terms. Expected columns: product_id,
// moq, unit, units_per_carton, cartons_per_pallet, order_multiple.
func (r *Registry) LoadMOQCSV(path string) (int, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return 0, err
	}

	idxProduct := table.colIndex("product_id", "sku")
	idxMOQ := table.colIndex("moq", "min_order")
	idxUnit := table.colIndex("unit", "moq_unit")
	idxPerCarton := table.colIndex("units_per_carton")
	idxPerPallet := table.colIndex("cartons_per_pallet")
	idxMultiple := table.colIndex("order_multiple")
	if idxProduct < 0 {
		return 0, fmt.Errorf("%w: %s has no product column", ErrInvalidRecord, path)
	}

	loaded := 0
	for _, rec := range table.rows {
		id := field(rec, idxProduct)
		if id == "" {
			continue
		}
		cfg := domain.MOQConfig{
			ProductID:        id,
			MOQ:              fieldInt(rec, idxMOQ),
			Unit:             domain.MOQUnit(strings.ToLower(field(rec, idxUnit))),
			UnitsPerCarton:   fieldInt(rec, idxPerCarton),
			CartonsPerPallet: fieldInt(rec, idxPerPallet),
			OrderMultiple:    fieldInt(rec, idxMultiple),
		}
		if err := r.SetMOQ(cfg); err != nil {
			return loaded, err
		}
		loaded++
	}

	return loaded, nil
}

// LoadDimensionsCSV loads product measurements. Unit columns are in cm
// and kg; carton columns are optional.
func (r *Registry) LoadDimensionsCSV(path string) (int, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return 0, err
	}

	idxProduct := table.colIndex("product_id", "sku")
	if idxProduct < 0 {
		return 0, fmt.Errorf("%w: %s has no product column", ErrInvalidRecord, path)
	}
	idxUnitL := table.colIndex("unit_length_cm", "length_cm")
	idxUnitW := table.colIndex("unit_width_cm", "width_cm")
	idxUnitH := table.colIndex("unit_height_cm", "height_cm")
	idxUnitKG := table.colIndex("unit_weight_kg", "weight_kg")
	idxCartonL := table.colIndex("carton_length_cm")
	idxCartonW := table.colIndex("carton_width_cm")
	idxCartonH := table.colIndex("carton_height_cm")
	idxCartonKG := table.colIndex("carton_weight_kg")
	idxPerCarton := table.colIndex("units_per_carton")

	loaded := 0
	for _, rec := range table.rows {
		id := field(rec, idxProduct)
		if id == "" {
			continue
		}
		dims := domain.ProductDimensions{
			ProductID:      id,
			UnitLengthCM:   fieldFloat(rec, idxUnitL),
			UnitWidthCM:    fieldFloat(rec, idxUnitW),
			UnitHeightCM:   fieldFloat(rec, idxUnitH),
			UnitWeightKG:   fieldFloat(rec, idxUnitKG),
			CartonLengthCM: fieldFloat(rec, idxCartonL),
			CartonWidthCM:  fieldFloat(rec, idxCartonW),
			CartonHeightCM: fieldFloat(rec, idxCartonH),
			CartonWeightKG: fieldFloat(rec, idxCartonKG),
			UnitsPerCarton: fieldInt(rec, idxPerCarton),
		}
		if err := r.SetDimensions(dims); err != nil {
			return loaded, err
		}
		loaded++
	}

	return loaded, nil
}

// LoadSuppliersCSV loads sourcing profiles.
func (r *Registry) LoadSuppliersCSV(path string) (int, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return 0, err
	}

	idxProduct := table.colIndex("product_id", "sku")
	if idxProduct < 0 {
		return 0, fmt.Errorf("%w: %s has no product column", ErrInvalidRecord, path)
	}
	idxSupplierID := table.colIndex("supplier_id")
	idxName := table.colIndex("supplier_name", "name")
	idxLead := table.colIndex("lead_time_days", "lead_time")
	idxCost := table.colIndex("unit_cost", "cost")
	idxCurrency := table.colIndex("currency")
	idxMode := table.colIndex("preferred_mode", "shipping_mode")
	idxReliability := table.colIndex("reliability")

	loaded := 0
	for _, rec := range table.rows {
		id := field(rec, idxProduct)
		if id == "" {
			continue
		}
		profile := domain.SupplierProfile{
			ProductID:     id,
			SupplierID:    field(rec, idxSupplierID),
			SupplierName:  field(rec, idxName),
			LeadTimeDays:  fieldInt(rec, idxLead),
			UnitCost:      fieldFloat(rec, idxCost),
			Currency:      strings.ToUpper(field(rec, idxCurrency)),
			PreferredMode: domain.ShippingMode(strings.ToLower(field(rec, idxMode))),
			Reliability:   fieldFloat(rec, idxReliability),
		}
		if err := r.SetSupplier(profile); err != nil {
			return loaded, err
		}
		loaded++
	}

	return loaded, nil
}

// LoadReservesCSV loads per-channel stock reserves. Expected columns:
// product_id, reserve_units.
func (r *Registry) LoadReservesCSV(path string) (int, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return 0, err
	}

	idxProduct := table.colIndex("product_id", "sku")
	idxReserve := table.colIndex("reserve_units", "reserve", "channel_reserve")
	if idxProduct < 0 {
		return 0, fmt.Errorf("%w: %s has no product column", ErrInvalidRecord, path)
	}

	loaded := 0
	for _, rec := range table.rows {
		id := field(rec, idxProduct)
		if id == "" {
			continue
		}
		if err := r.SetChannelReserve(id, fieldFloat(rec, idxReserve)); err != nil {
			return loaded, err
		}
		loaded++
	}

	return loaded, nil
}
