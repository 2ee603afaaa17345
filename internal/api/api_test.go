// internal/api/api_test.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mwidjaja/procura/internal/config"
	"github.com/mwidjaja/procura/internal/domain"
	"github.com/mwidjaja/procura/internal/inference"
	"github.com/mwidjaja/procura/internal/ledger"
	"github.com/mwidjaja/procura/internal/packer"
	"github.com/mwidjaja/procura/internal/planner"
	"github.com/mwidjaja/procura/internal/registry"
	"github.com/mwidjaja/procura/internal/repository/memory"
	"github.com/mwidjaja/procura/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.PlanningConfig{HistoryDays: 30}
	history := memory.NewHistoryStore()
	ledg := ledger.New(memory.NewLedgerStore())
	reg := registry.New()
	pk := packer.New(packer.Config{})
	analysis := service.NewAnalysisService(cfg, history, ledg, inference.New(inference.Config{}), nil)
	planning := service.NewPlanningService(cfg, history, ledg, analysis, planner.New(planner.Config{}, nil), pk, reg)

	services := &Services{
		Ledger:    service.NewLedgerService(ledg, nil, nil),
		Analysis:  analysis,
		Planning:  planning,
		Orders:    service.NewOrderService(reg),
		Export:    service.NewExportService(t.TempDir(), nil),
		Dashboard: service.NewDashboardService(planning, history, nil, nil),
		Packer:    pk,
		Registry:  reg,
	}

	return NewRouter(services, nil)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

func TestHealthRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestContextRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/context/note", domain.RecordProductNoteRequest{
		ProductID: "SKU-1",
		Note:      "seasonal item, check before winter",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record status = %d: %s", rec.Code, rec.Body.String())
	}
	var entry domain.ContextEntry
	decodeBody(t, rec, &entry)
	if entry.ID == "" || entry.Type != domain.EntryProductNote {
		t.Fatalf("entry = %+v", entry)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/context/summary/SKU-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d: %s", rec.Code, rec.Body.String())
	}
	var summary domain.ContextSummary
	decodeBody(t, rec, &summary)
	if summary.TotalEntries != 1 || len(summary.Notes) != 1 {
		t.Errorf("summary = %+v", summary)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/context/entries/"+entry.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d: %s", rec.Code, rec.Body.String())
	}

	// A second deactivation finds nothing active.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/context/entries/"+entry.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("repeat deactivate status = %d, want 404", rec.Code)
	}
}

func TestContextValidationFailsWith400(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/context/substitution", domain.RecordSubstitutionRequest{
		OriginalProductID:   "A",
		SubstituteProductID: "A",
		Quantity:            10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestPlanRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/planning/plan", domain.PlanRequest{
		ProductID:    "SKU-9",
		CurrentStock: 100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var plan domain.ReplenishmentPlan
	decodeBody(t, rec, &plan)
	if plan.ProductID != "SKU-9" || plan.RecommendedQuantity != 0 {
		t.Errorf("plan = %+v", plan)
	}
	if !strings.Contains(strings.Join(plan.Notes, " "), "no measured demand") {
		t.Errorf("notes = %v", plan.Notes)
	}
}

func TestPackSingleRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/packing/single", map[string]interface{}{
		"product_id":    "SKU-1",
		"desired_units": 100,
		"dimensions": domain.ProductDimensions{
			ProductID:    "SKU-1",
			UnitLengthCM: 50,
			UnitWidthCM:  100,
			UnitHeightCM: 50,
			UnitWeightKG: 2,
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result domain.PackResult
	decodeBody(t, rec, &result)
	if result.Best == nil || result.Best.Units < 100 {
		t.Errorf("result = %+v", result)
	}
}

func TestPackMultiRejectsUnknownContainer(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/packing/multi", map[string]interface{}{
		"container_type": "60ft",
		"items":          []domain.AllocationItem{{ProductID: "SKU-1", DesiredUnits: 10}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/dashboard/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var summary domain.DashboardSummary
	decodeBody(t, rec, &summary)
	if summary.Products != 0 || len(summary.Cards) != 4 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/registry/moq", domain.MOQConfig{
		ProductID: "SKU-1",
		MOQ:       100,
		Unit:      domain.MOQUnits,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set moq status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/registry/products/SKU-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get product status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/registry/products/UNKNOWN", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown product status = %d, want 404", rec.Code)
	}
}
