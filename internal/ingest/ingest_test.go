// internal/ingest/ingest_test.go
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/repository/memory"
)

type fakeSource struct {
	files   []*DriveFile
	data    map[string][]byte
	listErr error
}

func (f *fakeSource) ListFolder(string) ([]*DriveFile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeSource) Download(fileID string, w io.Writer) error {
	data, ok := f.data[fileID]
	if !ok {
		return fmt.Errorf("no such file: %s", fileID)
	}
	_, err := w.Write(data)
	return err
}

func (f *fakeSource) ResolveFolderPath(path string) (string, error) {
	return path, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExportKind(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"invoice_lines_2026.csv", KindSales},
		{"Daily_Sales_Export.csv", KindSales},
		{"stock_levels_jan.csv", KindStock},
		{"STOCK-2026.CSV", KindStock},
		{"notes.csv", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExportKind(tt.name); got != tt.want {
			t.Errorf("ExportKind(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIngestSalesCollapsesInvoiceLines(t *testing.T) {
	ctx := context.Background()
	store := memory.NewHistoryStore()
	ing := NewIngestor(store)

	body := "date,product_id,quantity,revenue\n" +
		"2026-01-05,SKU-1,3,30\n" +
		"2026-01-05,SKU-1,2,20\n" +
		"2026-01-06,SKU-1,4,40\n" +
		"2026-01-05,SKU-2,1,15\n"

	res, err := ing.IngestReader(ctx, "local", "invoice_lines_jan.csv", nil, strings.NewReader(body))
	if err != nil {
		t.Fatalf("IngestReader: %v", err)
	}
	if res.Status != domain.IngestStatusOK {
		t.Fatalf("status = %q, want %q", res.Status, domain.IngestStatusOK)
	}
	if res.Kind != KindSales {
		t.Errorf("kind = %q, want %q", res.Kind, KindSales)
	}
	if res.Products != 2 || res.Rows != 3 || res.Skipped != 0 {
		t.Errorf("got products=%d rows=%d skipped=%d, want 2/3/0", res.Products, res.Rows, res.Skipped)
	}

	points, err := store.SalesHistory(ctx, "SKU-1", day(2026, 1, 5), day(2026, 1, 6))
	if err != nil {
		t.Fatalf("SalesHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 daily points for SKU-1, got %d", len(points))
	}
	if points[0].Quantity != 5 || points[0].Revenue != 50 {
		t.Errorf("day one = %+v, want quantity 5 revenue 50", points[0])
	}
	if points[1].Quantity != 4 {
		t.Errorf("day two quantity = %v, want 4", points[1].Quantity)
	}

	// Re-running the same export must not double anything.
	if _, err := ing.IngestReader(ctx, "local", "invoice_lines_jan.csv", nil, strings.NewReader(body)); err != nil {
		t.Fatalf("second IngestReader: %v", err)
	}
	points, _ = store.SalesHistory(ctx, "SKU-1", day(2026, 1, 5), day(2026, 1, 5))
	if len(points) != 1 || points[0].Quantity != 5 {
		t.Fatalf("re-ingest changed history: %+v", points)
	}

	runs, err := store.RecentIngestRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentIngestRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(runs))
	}
	if runs[0].Source != "local" || runs[0].FileName != "invoice_lines_jan.csv" {
		t.Errorf("run = %+v, want source local and file name", runs[0])
	}
	if runs[0].RowsIngested != 3 || runs[0].Status != domain.IngestStatusOK {
		t.Errorf("run rows=%d status=%q, want 3/%q", runs[0].RowsIngested, runs[0].Status, domain.IngestStatusOK)
	}
}

func TestIngestStockLastRowWins(t *testing.T) {
	ctx := context.Background()
	store := memory.NewHistoryStore()
	ing := NewIngestor(store)

	body := "date,sku,qty\n" +
		"2026-02-01,SKU-9,100\n" +
		"2026-02-01,SKU-9,80\n" +
		"2026-02-02,SKU-9,75\n"

	res, err := ing.IngestReader(ctx, "local", "stock_levels_feb.csv", nil, strings.NewReader(body))
	if err != nil {
		t.Fatalf("IngestReader: %v", err)
	}
	if res.Kind != KindStock || res.Rows != 2 || res.Products != 1 {
		t.Fatalf("got kind=%q rows=%d products=%d, want stock/2/1", res.Kind, res.Rows, res.Products)
	}

	points, err := store.StockHistory(ctx, "SKU-9", day(2026, 2, 1), day(2026, 2, 2))
	if err != nil {
		t.Fatalf("StockHistory: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 stock points, got %d", len(points))
	}
	if points[0].Quantity != 80 {
		t.Errorf("duplicate day resolved to %v, want the later value 80", points[0].Quantity)
	}
	if points[1].Quantity != 75 {
		t.Errorf("second day = %v, want 75", points[1].Quantity)
	}
}

func TestIngestSkipsBadRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewHistoryStore()
	ing := NewIngestor(store)

	body := "date,product_id,quantity\n" +
		"2026-01-05,SKU-1,3\n" +
		"not-a-date,SKU-1,4\n" +
		"2026-01-06,,2\n" +
		"2026-01-07,SKU-1,two\n"

	res, err := ing.IngestReader(ctx, "local", "sales_export.csv", nil, strings.NewReader(body))
	if err != nil {
		t.Fatalf("IngestReader: %v", err)
	}
	if res.Status != domain.IngestStatusPartial {
		t.Fatalf("status = %q, want %q", res.Status, domain.IngestStatusPartial)
	}
	if res.Rows != 1 || res.Skipped != 3 {
		t.Errorf("rows=%d skipped=%d, want 1/3", res.Rows, res.Skipped)
	}
	if !strings.Contains(res.Error, "line 3") {
		t.Errorf("error = %q, want the first bad line called out", res.Error)
	}

	runs, _ := store.RecentIngestRuns(ctx, 5)
	if len(runs) != 1 || runs[0].Status != domain.IngestStatusPartial {
		t.Fatalf("expected one partial run, got %+v", runs)
	}
}

func TestIngestFailedRuns(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		body     string
	}{
		{"unknown export kind", "mystery.csv", "date,product_id,quantity\n"},
		{"missing column", "sales_export.csv", "date,product_id\n2026-01-05,SKU-1\n"},
		{"empty file", "stock_levels.csv", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewHistoryStore()
			ing := NewIngestor(store)

			res, err := ing.IngestReader(ctx, "local", tt.fileName, nil, strings.NewReader(tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if res.Status != domain.IngestStatusFailed {
				t.Errorf("status = %q, want %q", res.Status, domain.IngestStatusFailed)
			}
			if res.Rows != 0 {
				t.Errorf("rows = %d, want 0", res.Rows)
			}

			runs, _ := store.RecentIngestRuns(ctx, 5)
			if len(runs) != 1 || runs[0].Status != domain.IngestStatusFailed {
				t.Fatalf("expected one failed run on record, got %+v", runs)
			}
		})
	}
}

func TestIngestUnknownExportKind(t *testing.T) {
	store := memory.NewHistoryStore()
	ing := NewIngestor(store)

	_, err := ing.IngestReader(context.Background(), "local", "mystery.csv", nil, strings.NewReader("a,b\n"))
	if !errors.Is(err, ErrUnknownExport) {
		t.Fatalf("err = %v, want ErrUnknownExport", err)
	}
}

func TestWatcherSweepIngestsNewAndChanged(t *testing.T) {
	ctx := context.Background()
	store := memory.NewHistoryStore()
	ing := NewIngestor(store)
	src := &fakeSource{
		files: []*DriveFile{
			{ID: "f1", Name: "invoice_lines_jan.csv", ModifiedTime: "2026-01-10T00:00:00Z"},
			{ID: "f2", Name: "stock_levels_jan.csv", ModifiedTime: "2026-01-10T00:00:00Z"},
			{ID: "f3", Name: "summary.pdf", ModifiedTime: "2026-01-10T00:00:00Z"},
			{ID: "f4", Name: "notes.csv", ModifiedTime: "2026-01-10T00:00:00Z"},
		},
		data: map[string][]byte{
			"f1": []byte("date,product_id,quantity,revenue\n2026-01-05,SKU-1,3,30\n"),
			"f2": []byte("date,product_id,quantity\n2026-01-05,SKU-1,40\n"),
		},
	}
	w := NewWatcher(src, ing, "exports", time.Minute)

	if n := w.Sweep(ctx); n != 2 {
		t.Fatalf("first sweep ingested %d files, want 2", n)
	}
	if n := w.Sweep(ctx); n != 0 {
		t.Fatalf("second sweep ingested %d files, want 0", n)
	}

	src.files[0].ModifiedTime = "2026-01-11T00:00:00Z"
	if n := w.Sweep(ctx); n != 1 {
		t.Fatalf("sweep after modification ingested %d files, want 1", n)
	}

	sales, _ := store.SalesHistory(ctx, "SKU-1", day(2026, 1, 5), day(2026, 1, 5))
	if len(sales) != 1 || sales[0].Quantity != 3 {
		t.Errorf("sales history = %+v, want one point of 3", sales)
	}
	stock, _ := store.StockHistory(ctx, "SKU-1", day(2026, 1, 5), day(2026, 1, 5))
	if len(stock) != 1 || stock[0].Quantity != 40 {
		t.Errorf("stock history = %+v, want one point of 40", stock)
	}

	runs, _ := store.RecentIngestRuns(ctx, 10)
	if len(runs) != 3 {
		t.Fatalf("expected 3 recorded runs, got %d", len(runs))
	}
	if runs[0].Source != "drive" {
		t.Errorf("run source = %q, want drive", runs[0].Source)
	}
	if runs[0].FileModified == nil {
		t.Error("expected the drive modifiedTime on the run record")
	}

	src.listErr = errors.New("drive unavailable")
	if n := w.Sweep(ctx); n != 0 {
		t.Fatalf("sweep with listing failure ingested %d files, want 0", n)
	}
}

func TestWatcherRetriesFailedFiles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewHistoryStore()
	ing := NewIngestor(store)
	src := &fakeSource{
		files: []*DriveFile{
			{ID: "f1", Name: "sales_broken.csv", ModifiedTime: "2026-01-10T00:00:00Z"},
		},
		data: map[string][]byte{
			"f1": []byte("oops"),
		},
	}
	w := NewWatcher(src, ing, "exports", time.Minute)

	if n := w.Sweep(ctx); n != 0 {
		t.Fatalf("sweep ingested %d files, want 0", n)
	}
	if n := w.Sweep(ctx); n != 0 {
		t.Fatalf("retry sweep ingested %d files, want 0", n)
	}

	// The file stays unmarked, so each sweep records a fresh failed run.
	runs, _ := store.RecentIngestRuns(ctx, 10)
	if len(runs) != 2 {
		t.Fatalf("expected 2 failed runs on record, got %d", len(runs))
	}
	for _, run := range runs {
		if run.Status != domain.IngestStatusFailed {
			t.Errorf("run status = %q, want %q", run.Status, domain.IngestStatusFailed)
		}
	}
}

func newIngestTestRouter(src *fakeSource, store *memory.HistoryStore) *mux.Router {
	ing := NewIngestor(store)
	w := NewWatcher(src, ing, "exports", time.Minute)
	h := NewHandler(src, ing, store, w, "exports")

	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestHandlerIngestFile(t *testing.T) {
	store := memory.NewHistoryStore()
	src := &fakeSource{
		data: map[string][]byte{
			"f1": []byte("date,product_id,quantity,revenue\n2026-01-05,SKU-1,3,30\n"),
		},
	}
	router := newIngestTestRouter(src, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/run?fileId=f1&name=invoice_lines.csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var res FileResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != domain.IngestStatusOK || res.Rows != 1 {
		t.Errorf("result = %+v, want ok with 1 row", res)
	}

	points, _ := store.SalesHistory(context.Background(), "SKU-1", day(2026, 1, 5), day(2026, 1, 5))
	if len(points) != 1 {
		t.Fatalf("expected the ingested point in history, got %+v", points)
	}

	for _, target := range []string{"/api/ingest/run", "/api/ingest/run?fileId=f1"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandlerListAndDownload(t *testing.T) {
	store := memory.NewHistoryStore()
	src := &fakeSource{
		files: []*DriveFile{
			{ID: "f1", Name: "invoice_lines.csv"},
			{ID: "f2", Name: "stock_levels.csv"},
		},
		data: map[string][]byte{"f1": []byte("date,product_id,quantity\n")},
	}
	router := newIngestTestRouter(src, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest/files", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var files []*DriveFile
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("listed %d files, want 2", len(files))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest/files/download?fileId=f1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "date,product_id,quantity\n" {
		t.Errorf("download status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest/files/download", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("download without fileId status = %d, want 400", rec.Code)
	}
}

func TestHandlerSweepAndRuns(t *testing.T) {
	store := memory.NewHistoryStore()
	src := &fakeSource{
		files: []*DriveFile{
			{ID: "f1", Name: "invoice_lines.csv", ModifiedTime: "2026-01-10T00:00:00Z"},
		},
		data: map[string][]byte{
			"f1": []byte("date,product_id,quantity\n2026-01-05,SKU-1,3\n"),
		},
	}
	router := newIngestTestRouter(src, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/sweep", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status = %d", rec.Code)
	}
	var sweep map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &sweep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sweep["files_ingested"] != 1 {
		t.Errorf("files_ingested = %d, want 1", sweep["files_ingested"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("runs status = %d", rec.Code)
	}
	var body struct {
		Runs  []domain.IngestRun `json:"runs"`
		Total int                `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || len(body.Runs) != 1 {
		t.Fatalf("runs = %+v, want exactly one", body)
	}
	if body.Runs[0].FileName != "invoice_lines.csv" || body.Runs[0].Status != domain.IngestStatusOK {
		t.Errorf("run = %+v, want the swept file with ok status", body.Runs[0])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest/runs?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}
