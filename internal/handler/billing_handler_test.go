package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abelcubano/main-project/internal/billing"
	"github.com/abelcubano/main-project/internal/models"
	apierrors "github.com/abelcubano/main-project/internal/pkg/errors"
	"github.com/abelcubano/main-project/internal/service"
)

// mockBillingService is a mock implementation of BillingService for testing.
type mockBillingService struct {
	runCycleFunc       func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error)
	renderDocumentFunc func(ctx context.Context, invoiceID uuid.UUID, w io.Writer) (*models.Invoice, error)
}

func (m *mockBillingService) RunCycle(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
	if m.runCycleFunc != nil {
		return m.runCycleFunc(ctx, req)
	}
	return &service.CycleResult{}, nil
}

func (m *mockBillingService) RenderDocument(ctx context.Context, invoiceID uuid.UUID, w io.Writer) (*models.Invoice, error) {
	if m.renderDocumentFunc != nil {
		return m.renderDocumentFunc(ctx, invoiceID, w)
	}
	return nil, apierrors.NewNotFoundError("Invoice")
}

func sampleResult() *service.CycleResult {
	period := "2026-03"
	return &service.CycleResult{
		RunID:          "01J00000000000000000000000",
		Period:         billing.Period{Year: 2026, Month: time.March},
		GeneratedCount: 1,
		SkippedCount:   2,
		Skips: map[service.SkipReason]int{
			service.SkipNoServices:    1,
			service.SkipAlreadyBilled: 1,
		},
		Errors: []string{"Failed for Beta: boom"},
		Invoices: []*models.Invoice{{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			InvoiceNumber: "INV-202603-0042",
			BillingPeriod: &period,
			Status:        models.InvoiceStatusPending,
			IssueDate:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			DueDate:       time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC),
			Subtotal:      decimal.RequireFromString("39.99"),
			Tax:           decimal.Zero,
			Total:         decimal.RequireFromString("39.99"),
		}},
	}
}

func TestBillingHandler_RunCycle(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockService    *mockBillingService
		expectedStatus int
		checkResponse  func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "runs cycle with empty body",
			body: "",
			mockService: &mockBillingService{
				runCycleFunc: func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
					if req.ReferenceDate != nil {
						t.Errorf("ReferenceDate = %v, want nil", req.ReferenceDate)
					}
					return sampleResult(), nil
				},
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp struct {
					Data CycleResponse `json:"data"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if resp.Data.Period != "2026-03" {
					t.Errorf("Period = %q, want 2026-03", resp.Data.Period)
				}
				if resp.Data.Generated != 1 || resp.Data.Skipped != 2 {
					t.Errorf("Generated/Skipped = %d/%d, want 1/2", resp.Data.Generated, resp.Data.Skipped)
				}
				if resp.Data.Skips["already_billed"] != 1 {
					t.Errorf("Skips = %v, want already_billed=1", resp.Data.Skips)
				}
				if len(resp.Data.Invoices) != 1 || resp.Data.Invoices[0].Total != "39.99" {
					t.Errorf("Invoices = %+v, want one invoice totalling 39.99", resp.Data.Invoices)
				}
				if resp.Data.Invoices[0].DueDate != "2026-04-14" {
					t.Errorf("DueDate = %q, want 2026-04-14", resp.Data.Invoices[0].DueDate)
				}
				if len(resp.Data.Errors) != 1 {
					t.Errorf("Errors = %v, want one entry", resp.Data.Errors)
				}
			},
		},
		{
			name: "passes reference date in configured location",
			body: `{"reference_date":"2026-01-31"}`,
			mockService: &mockBillingService{
				runCycleFunc: func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
					if req.ReferenceDate == nil {
						t.Fatal("ReferenceDate = nil, want 2026-01-31")
					}
					if got := req.ReferenceDate.Format("2006-01-02"); got != "2026-01-31" {
						t.Errorf("ReferenceDate = %s, want 2026-01-31", got)
					}
					if req.ReferenceDate.Location().String() != "America/New_York" {
						t.Errorf("Location = %s, want America/New_York", req.ReferenceDate.Location())
					}
					return &service.CycleResult{Period: billing.Period{Year: 2026, Month: time.January}}, nil
				},
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if !strings.Contains(rec.Body.String(), `"errors":[]`) {
					t.Errorf("Body = %s, want empty errors array", rec.Body.String())
				}
			},
		},
		{
			name:           "rejects malformed date",
			body:           `{"reference_date":"03/15/2026"}`,
			mockService:    &mockBillingService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejects impossible date",
			body:           `{"reference_date":"2026-13-01"}`,
			mockService:    &mockBillingService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejects invalid JSON",
			body:           "not json",
			mockService:    &mockBillingService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "reports cycle in progress",
			body: "{}",
			mockService: &mockBillingService{
				runCycleFunc: func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
					return nil, apierrors.ErrCycleInProgress
				},
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "reports cancellation",
			body: "{}",
			mockService: &mockBillingService{
				runCycleFunc: func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
					return &service.CycleResult{}, context.Canceled
				},
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name: "keeps partial result on timeout",
			body: "{}",
			mockService: &mockBillingService{
				runCycleFunc: func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
					return sampleResult(), context.DeadlineExceeded
				},
			},
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp struct {
					Data  *CycleResponse `json:"data"`
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to unmarshal response: %v", err)
				}
				if resp.Error.Code != "cancelled" {
					t.Errorf("Error.Code = %q, want cancelled", resp.Error.Code)
				}
				if resp.Data == nil {
					t.Fatal("Data = nil, want the partial cycle result")
				}
				if len(resp.Data.Invoices) != 1 || resp.Data.Invoices[0].InvoiceNumber != "INV-202603-0042" {
					t.Errorf("Invoices = %+v, want INV-202603-0042", resp.Data.Invoices)
				}
				if len(resp.Data.Errors) != 1 || resp.Data.Errors[0] != "Failed for Beta: boom" {
					t.Errorf("Errors = %v, want the Beta failure", resp.Data.Errors)
				}
			},
		},
		{
			name: "reports cancellation without result",
			body: "{}",
			mockService: &mockBillingService{
				runCycleFunc: func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
					return nil, context.Canceled
				},
			},
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if strings.Contains(rec.Body.String(), `"data"`) {
					t.Errorf("Body = %s, want no data", rec.Body.String())
				}
			},
		},
		{
			name: "hides unexpected errors",
			body: "{}",
			mockService: &mockBillingService{
				runCycleFunc: func(ctx context.Context, req service.CycleRequest) (*service.CycleResult, error) {
					return nil, errors.New("connection refused")
				},
			},
			expectedStatus: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if strings.Contains(rec.Body.String(), "connection refused") {
					t.Errorf("Body leaks internal error: %s", rec.Body.String())
				}
			},
		},
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewBillingHandler(tt.mockService, loc)

			req := httptest.NewRequest(http.MethodPost, "/cycles", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.CycleRoutes().ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status = %d, want %d. Body: %s", rec.Code, tt.expectedStatus, rec.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, rec)
			}
		})
	}
}

func TestBillingHandler_Document(t *testing.T) {
	invoiceID := uuid.New()

	tests := []struct {
		name           string
		id             string
		mockService    *mockBillingService
		expectedStatus int
		checkResponse  func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "streams the PDF",
			id:   invoiceID.String(),
			mockService: &mockBillingService{
				renderDocumentFunc: func(ctx context.Context, id uuid.UUID, w io.Writer) (*models.Invoice, error) {
					if id != invoiceID {
						t.Errorf("id = %s, want %s", id, invoiceID)
					}
					w.Write([]byte("%PDF-1.3 test"))
					return &models.Invoice{ID: id, InvoiceNumber: "INV-202603-0042"}, nil
				},
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
					t.Errorf("Content-Type = %q, want application/pdf", ct)
				}
				if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="INV-202603-0042.pdf"` {
					t.Errorf("Content-Disposition = %q", cd)
				}
				if cl := rec.Header().Get("Content-Length"); cl != "13" {
					t.Errorf("Content-Length = %q, want 13", cl)
				}
				if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
					t.Errorf("Body = %q, want PDF bytes", rec.Body.String())
				}
			},
		},
		{
			name:           "returns 404 for unknown invoice",
			id:             invoiceID.String(),
			mockService:    &mockBillingService{},
			expectedStatus: http.StatusNotFound,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			},
		},
		{
			name:           "rejects invalid UUID",
			id:             "not-a-uuid",
			mockService:    &mockBillingService{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewBillingHandler(tt.mockService, time.UTC)

			r := chi.NewRouter()
			r.Mount("/v1/invoices", handler.InvoiceRoutes())

			req := httptest.NewRequest(http.MethodGet, "/v1/invoices/"+tt.id+"/document", nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status = %d, want %d. Body: %s", rec.Code, tt.expectedStatus, rec.Body.String())
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, rec)
			}
		})
	}
}
