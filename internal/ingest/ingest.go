// internal/ingest/ingest.go
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/repository"
	"github.com/mwidjaja/procura/pkg/logger"
)

// Export kinds, decided from the file name. The bookkeeping system names
// its dumps invoice_lines_*.csv and stock_levels_*.csv.
const (
	KindSales = "sales"
	KindStock = "stock"
)

// ErrUnknownExport marks a file whose name matches no known export kind.
var ErrUnknownExport = errors.New("unknown export kind")

// FileSource lists and downloads export files. *DriveClient satisfies it.
type FileSource interface {
	ListFolder(folderID string) ([]*DriveFile, error)
	Download(fileID string, w io.Writer) error
	ResolveFolderPath(path string) (string, error)
}

// FileResult is the outcome of ingesting a single export file.
type FileResult struct {
	FileName string `json:"file_name"`
	Kind     string `json:"kind"`
	Products int    `json:"products"`
	Rows     int    `json:"rows"`
	Skipped  int    `json:"skipped"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Ingestor parses bookkeeping exports and folds them into the history
// store. Invoice lines are collapsed to one sales point per product per
// day before upserting, so running the same file twice changes nothing.
// Every attempt is recorded as an ingest run, failures included.
type Ingestor struct {
	history repository.HistoryRepository
	log     zerolog.Logger
}

func NewIngestor(history repository.HistoryRepository) *Ingestor {
	return &Ingestor{
		history: history,
		log:     logger.Component("ingest"),
	}
}

// ExportKind classifies an export file by its name. Unknown names return
// the empty string.
func ExportKind(name string) string {
	base := strings.ToLower(name)
	switch {
	case strings.Contains(base, "stock"):
		return KindStock
	case strings.Contains(base, "invoice"), strings.Contains(base, "sales"):
		return KindSales
	default:
		return ""
	}
}

// IngestReader parses one export from r and upserts it into the history
// store. source tags the run record ("drive", "local"). Rows that fail to
// parse are skipped and downgrade the run to partial; an unreadable file
// records a failed run and returns the error.
func (ing *Ingestor) IngestReader(ctx context.Context, source, fileName string, modified *time.Time, r io.Reader) (*FileResult, error) {
	started := time.Now().UTC()
	res := &FileResult{FileName: fileName, Kind: ExportKind(fileName)}

	var err error
	if res.Kind == "" {
		err = fmt.Errorf("%w: %s", ErrUnknownExport, fileName)
	} else {
		err = ing.ingestInto(ctx, res, r)
	}

	switch {
	case err != nil:
		res.Status = domain.IngestStatusFailed
		res.Error = err.Error()
	case res.Skipped > 0:
		res.Status = domain.IngestStatusPartial
	default:
		res.Status = domain.IngestStatusOK
	}

	run := &domain.IngestRun{
		Source:       source,
		FileName:     fileName,
		FileModified: modified,
		RowsIngested: res.Rows,
		Status:       res.Status,
		Error:        res.Error,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}
	if recErr := ing.history.RecordIngestRun(ctx, run); recErr != nil {
		ing.log.Warn().Err(recErr).Str("file", fileName).Msg("failed to record ingest run")
	}

	ing.log.Info().
		Str("file", fileName).
		Str("kind", res.Kind).
		Str("status", res.Status).
		Int("rows", res.Rows).
		Int("skipped", res.Skipped).
		Msg("export processed")

	return res, err
}

// IngestDriveFile downloads one Drive file and ingests it.
func (ing *Ingestor) IngestDriveFile(ctx context.Context, source FileSource, f *DriveFile) (*FileResult, error) {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(source.Download(f.ID, pw))
	}()

	var modified *time.Time
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			modified = &t
		}
	}

	res, err := ing.IngestReader(ctx, "drive", f.Name, modified, pr)
	// Unblock the download goroutine if parsing stopped early.
	_, _ = io.Copy(io.Discard, pr)

	return res, err
}

func (ing *Ingestor) ingestInto(ctx context.Context, res *FileResult, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	cols := indexHeader(header)

	switch res.Kind {
	case KindSales:
		return ing.ingestSales(ctx, res, reader, cols)
	case KindStock:
		return ing.ingestStock(ctx, res, reader, cols)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownExport, res.FileName)
	}
}

func (ing *Ingestor) ingestSales(ctx context.Context, res *FileResult, reader *csv.Reader, cols headerMap) error {
	dateIdx, ok := cols.column("date", "invoice_date", "sale_date")
	if !ok {
		return fmt.Errorf("missing required column: date")
	}
	productIdx, ok := cols.column("product_id", "sku")
	if !ok {
		return fmt.Errorf("missing required column: product_id")
	}
	qtyIdx, ok := cols.column("quantity", "qty")
	if !ok {
		return fmt.Errorf("missing required column: quantity")
	}
	revenueIdx, _ := cols.column("revenue", "amount")

	daily := make(map[string]map[time.Time]*domain.SalePoint)

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		line++

		productID := field(record, productIdx)
		date, dateErr := parseDay(field(record, dateIdx))
		qty, qtyErr := strconv.ParseFloat(field(record, qtyIdx), 64)
		if productID == "" || dateErr != nil || qtyErr != nil {
			res.Skipped++
			if res.Error == "" {
				res.Error = fmt.Sprintf("line %d: unparseable invoice row", line)
			}
			continue
		}

		var revenue float64
		if v := field(record, revenueIdx); v != "" {
			revenue, _ = strconv.ParseFloat(v, 64)
		}

		if daily[productID] == nil {
			daily[productID] = make(map[time.Time]*domain.SalePoint)
		}
		p := daily[productID][date]
		if p == nil {
			p = &domain.SalePoint{Date: date}
			daily[productID][date] = p
		}
		p.Quantity += qty
		p.Revenue += revenue
	}

	products := make([]string, 0, len(daily))
	for productID := range daily {
		products = append(products, productID)
	}
	sort.Strings(products)

	for _, productID := range products {
		points := make([]domain.SalePoint, 0, len(daily[productID]))
		for _, p := range daily[productID] {
			points = append(points, *p)
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

		n, err := ing.history.UpsertDailySales(ctx, productID, points)
		if err != nil {
			return fmt.Errorf("failed to upsert sales for %s: %w", productID, err)
		}
		res.Rows += n
	}
	res.Products = len(daily)

	return nil
}

func (ing *Ingestor) ingestStock(ctx context.Context, res *FileResult, reader *csv.Reader, cols headerMap) error {
	dateIdx, ok := cols.column("date", "stock_date")
	if !ok {
		return fmt.Errorf("missing required column: date")
	}
	productIdx, ok := cols.column("product_id", "sku")
	if !ok {
		return fmt.Errorf("missing required column: product_id")
	}
	qtyIdx, ok := cols.column("quantity", "qty", "on_hand")
	if !ok {
		return fmt.Errorf("missing required column: quantity")
	}

	// Later rows for the same product and day win.
	daily := make(map[string]map[time.Time]domain.StockPoint)

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		line++

		productID := field(record, productIdx)
		date, dateErr := parseDay(field(record, dateIdx))
		qty, qtyErr := strconv.ParseFloat(field(record, qtyIdx), 64)
		if productID == "" || dateErr != nil || qtyErr != nil {
			res.Skipped++
			if res.Error == "" {
				res.Error = fmt.Sprintf("line %d: unparseable stock row", line)
			}
			continue
		}

		if daily[productID] == nil {
			daily[productID] = make(map[time.Time]domain.StockPoint)
		}
		daily[productID][date] = domain.StockPoint{Date: date, Quantity: qty}
	}

	products := make([]string, 0, len(daily))
	for productID := range daily {
		products = append(products, productID)
	}
	sort.Strings(products)

	for _, productID := range products {
		points := make([]domain.StockPoint, 0, len(daily[productID]))
		for _, p := range daily[productID] {
			points = append(points, p)
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

		n, err := ing.history.UpsertStockLevels(ctx, productID, points)
		if err != nil {
			return fmt.Errorf("failed to upsert stock for %s: %w", productID, err)
		}
		res.Rows += n
	}
	res.Products = len(daily)

	return nil
}

type headerMap map[string]int

func indexHeader(header []string) headerMap {
	m := make(headerMap, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func (m headerMap) column(names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := m[name]; ok {
			return idx, true
		}
	}
	return -1, false
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Accepted date layouts, most common first. Everything is truncated to a
// UTC day.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDay(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}
