package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/application/services/cutting"
	"github.com/vsinha/wirecut/pkg/application/services/reconcile"
	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/gormstore"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/wirecut/pkg/infrastructure/testing"
)

type testServer struct {
	e      *echo.Echo
	store  *gormstore.Store
	source *memory.SnapshotSource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := testhelpers.NewStore(t)
	source := testhelpers.BuildKitSnapshot()

	engine := reconcile.NewEngine(store, nil, zap.NewNop(), reconcile.DefaultEngineConfig())
	jobs := cutting.NewService(store, nil, zap.NewNop())
	handler := NewHandler(engine, source, jobs, zap.NewNop())
	return &testServer{e: NewRouter(handler, zap.NewNop()), store: store, source: source}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestReconcile(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/reconcile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body reconcileResponse
	decode(t, rec, &body)
	if body.Inserted != 2 || body.Total != 2 {
		t.Errorf("Expected 2 inserted of 2, got %+v", body)
	}

	s.source.FailWith(entities.NewTransientSourceError("open order items", "", errors.New("timeout")))
	rec = s.do(t, http.MethodPost, "/api/v1/reconcile", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestCutJobFlow(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodPost, "/api/v1/reconcile", ""); rec.Code != http.StatusOK {
		t.Fatalf("reconcile failed: %d", rec.Code)
	}
	child, err := s.store.SalesOrders().FindItem(context.Background(), "SO-100", 1, "50124")
	if err != nil {
		t.Fatalf("FindItem failed: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/api/v1/wire-cutters", `{"name":"Komax 1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var cutter entities.WireCutter
	decode(t, rec, &cutter)

	rec = s.do(t, http.MethodPost, "/api/v1/cut-jobs", fmt.Sprintf(`{"wire_cutter_id":%d}`, cutter.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var job entities.CutJob
	decode(t, rec, &job)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/cut-jobs/%d/items", job.ID), `{"part_number":"50124"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var item entities.CutJobItem
	decode(t, rec, &item)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/cut-job-items/%d/order-items", item.ID),
		fmt.Sprintf(`{"order_item_id":%d}`, child.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cut-job-items/%d/quantity-cut", item.ID), `{"quantity":"11"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for overcut, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cut-job-items/%d/quantity-cut", item.ID), `{"quantity":6,"mode":"add"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cut-job-items/%d/quantity-cut", item.ID), `{"quantity":4,"mode":"add"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cut cutResponse
	decode(t, rec, &cut)
	if !cut.JobFulfilled || !cut.HistoryWritten {
		t.Errorf("Expected job fulfilled with history, got %+v", cut)
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/cut-jobs/%d", job.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	decode(t, rec, &job)
	if job.Status != entities.CutJobFulfilled {
		t.Errorf("Expected job fulfilled, got %s", job.Status)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/cut-jobs?status=fulfilled", "")
	var jobs []entities.CutJob
	decode(t, rec, &jobs)
	if len(jobs) != 1 {
		t.Errorf("Expected 1 fulfilled job, got %d", len(jobs))
	}
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		expected int
	}{
		{"missing job", http.MethodGet, "/api/v1/cut-jobs/42", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/v1/cut-jobs/abc", "", http.StatusBadRequest},
		{"unknown cutter", http.MethodPost, "/api/v1/cut-jobs", `{"wire_cutter_id":7}`, http.StatusNotFound},
		{"empty cutter name", http.MethodPost, "/api/v1/wire-cutters", `{"name":""}`, http.StatusUnprocessableEntity},
		{"bad status filter", http.MethodGet, "/api/v1/cut-jobs?status=done", "", http.StatusBadRequest},
		{"bad mode", http.MethodPut, "/api/v1/cut-job-items/1/quantity-cut", `{"quantity":1,"mode":"double"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{entities.NewNotFoundError("cut job", "1"), http.StatusNotFound},
		{entities.NewValidationError("cut job item", "1/2", "item is on hold"), http.StatusUnprocessableEntity},
		{entities.NewConflictError("cut job", "1", "version 3 is stale"), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", entities.NewTransientSourceError("default bom", "50123", errors.New("eof"))), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.expected {
			t.Errorf("Expected %d for %v, got %d", tt.expected, tt.err, got)
		}
	}
}
