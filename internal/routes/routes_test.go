package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stock-reconciler/internal/config"
	"stock-reconciler/internal/handlers"
	"stock-reconciler/internal/ledger"
	"stock-reconciler/internal/middleware"
	"stock-reconciler/internal/models"
	"stock-reconciler/internal/services"
	"stock-reconciler/internal/tabular"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInventory struct {
	err error
}

func (f *fakeInventory) GetLatest(ctx context.Context, date string) (*models.InventorySnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if date == "" {
		date = "2024-01-31"
	}
	return &models.InventorySnapshot{Date: date, TotalItems: 1, Rows: []models.InventoryRow{{Date: date, ProductCode: "P1", ClosingStock: 19}}}, nil
}

func (f *fakeInventory) GetManagedProducts(ctx context.Context) ([]models.Product, error) {
	return []models.Product{{Code: "P1", Name: "Onigiri", IsManaged: true}}, f.err
}

func (f *fakeInventory) GetHistory(ctx context.Context, code string, query models.HistoryQuery) ([]models.InventoryRow, error) {
	if query.From == "bad" {
		return nil, fmt.Errorf("%w: date %q", services.ErrInvalidQuery, query.From)
	}
	return []models.InventoryRow{{ProductCode: code}}, f.err
}

func (f *fakeInventory) GetDiscrepancies(ctx context.Context, query models.HistoryQuery) ([]models.InventoryRow, error) {
	return []models.InventoryRow{}, f.err
}

type fakeMaterializer struct {
	actions []string
	err     error
}

func (f *fakeMaterializer) Run(ctx context.Context, mode ledger.Mode, trigger string) (*models.RunResult, error) {
	return &models.RunResult{Mode: string(mode)}, f.err
}

func (f *fakeMaterializer) RunAction(ctx context.Context, action, trigger string) (*models.RunResult, error) {
	f.actions = append(f.actions, action)
	if f.err != nil {
		return nil, f.err
	}
	return &models.RunResult{Mode: action, RowsWritten: 7}, nil
}

func (f *fakeMaterializer) InspectAnchors(ctx context.Context) (*services.AnchorReport, error) {
	return &services.AnchorReport{}, f.err
}

type fakeRecords struct {
	kinds []string
}

func (f *fakeRecords) Add(ctx context.Context, kind string, req *models.RecordRequest) (*models.RecordResponse, error) {
	f.kinds = append(f.kinds, kind)
	if kind == "transfers" {
		return nil, fmt.Errorf("%w: unknown kind", services.ErrInvalidRecord)
	}
	return &models.RecordResponse{ID: "id-1", Kind: kind, ProductCode: req.ProductCode, Quantity: *req.Quantity}, nil
}

type testServer struct {
	router       *gin.Engine
	inventory    *fakeInventory
	materializer *fakeMaterializer
	records      *fakeRecords
	monitoring   services.MonitoringService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	cfg := &config.Config{}
	cfg.Tabular.Backend = config.BackendMemory
	src := tabular.NewMemorySource()

	s := &testServer{
		inventory:    &fakeInventory{},
		materializer: &fakeMaterializer{},
		records:      &fakeRecords{},
		monitoring:   services.NewMonitoringService(logger, cfg, nil, nil, src, nil),
	}
	s.router = NewRouter(Handlers{
		Inventory:  handlers.NewInventoryHandler(s.inventory, s.materializer, logger),
		Records:    handlers.NewRecordHandler(s.records, logger),
		Monitoring: handlers.NewMonitoringHandler(s.monitoring, logger),
		Health:     middleware.NewHealthChecker(src, config.BackendMemory, nil, nil, logger),
	}, nil, logger)
	return s
}

func (s *testServer) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var envelope map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &envelope)
	return w, envelope
}

func TestGetLatest(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodGet, "/api/v1/inventory/latest?date=2024-01-20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2024-01-20", data["date"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestQueryErrors(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodGet, "/api/v1/inventory/history/P1?from=bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])

	s.inventory.err = &services.RunError{Kind: services.KindSource, Op: "load", Err: tabular.ErrTableNotFound}
	w, _ = s.do(http.MethodGet, "/api/v1/products/managed", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRunActionFromBodyAndQuery(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodPost, "/api/v1/inventory/actions", `{"action":"recalculateAll"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, _ = s.do(http.MethodPost, "/api/v1/inventory/actions?action=updateToday", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"recalculateAll", "updateToday"}, s.materializer.actions)
}

func TestRunActionRejectsUnknownAction(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodPost, "/api/v1/inventory/actions", `{"action":"dropEverything"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Empty(t, s.materializer.actions)

	w, _ = s.do(http.MethodPost, "/api/v1/inventory/actions", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunActionLockTimeoutIsConflict(t *testing.T) {
	s := newTestServer(t)
	s.materializer.err = &services.RunError{Kind: services.KindConcurrency, Op: "materialize_windowed", Err: fmt.Errorf("busy")}

	w, body := s.do(http.MethodPost, "/api/v1/inventory/actions", `{"action":"updateToday"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, body["error"], "concurrency")
}

func TestAddRecord(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodPost, "/api/v1/records/sales", `{"product_code":"P1","date":"2024-01-31","quantity":3}`)
	require.Equal(t, http.StatusCreated, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "id-1", data["id"])

	w, _ = s.do(http.MethodPost, "/api/v1/records/sales", `{"product_code":"P1","date":"2024-01-31"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/records/sales", `{"product_code":"P1","date":"2024-01-31","quantity":-2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/records/transfers", `{"product_code":"P1","date":"2024-01-31","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"sales", "transfers"}, s.records.kinds)
}

func TestHealthAndMonitoring(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	s.do(http.MethodGet, "/api/v1/inventory/latest", "")
	s.do(http.MethodGet, "/api/v1/inventory/history/P1", "")
	s.do(http.MethodGet, "/api/v1/inventory/history/P2", "")

	w, body = s.do(http.MethodGet, "/api/v1/monitoring/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	requests := body["requests"].(map[string]interface{})
	assert.Equal(t, float64(3), requests["total_requests"])
	byEndpoint := requests["byEndpoint"].(map[string]interface{})
	assert.Contains(t, byEndpoint, "GET /api/v1/inventory/history/:code")

	w, body = s.do(http.MethodGet, "/api/v1/monitoring/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
}
