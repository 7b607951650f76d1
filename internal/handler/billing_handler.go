// Package handler provides HTTP handlers for the billing API.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/abelcubano/main-project/internal/billing"
	"github.com/abelcubano/main-project/internal/models"
	apierrors "github.com/abelcubano/main-project/internal/pkg/errors"
	"github.com/abelcubano/main-project/internal/pkg/response"
	"github.com/abelcubano/main-project/internal/service"
)

const dateLayout = "2006-01-02"

// BillingHandler handles billing cycle and invoice document requests.
type BillingHandler struct {
	billingService service.BillingService
	validate       *validator.Validate
	loc            *time.Location
}

// NewBillingHandler creates a new billing handler. Reference dates are
// interpreted in loc.
func NewBillingHandler(billingService service.BillingService, loc *time.Location) *BillingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BillingHandler{
		billingService: billingService,
		validate:       validator.New(),
		loc:            loc,
	}
}

// CycleRoutes returns the routes mounted under /v1/billing.
func (h *BillingHandler) CycleRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/cycles", h.RunCycle)
	return r
}

// InvoiceRoutes returns the routes mounted under /v1/invoices.
func (h *BillingHandler) InvoiceRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/document", h.Document)
	return r
}

// RunCycleHTTPRequest is the HTTP request body for running a billing cycle.
type RunCycleHTTPRequest struct {
	ReferenceDate string `json:"reference_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// InvoiceResponse is the JSON form of a generated invoice. Amounts are
// decimal strings with two places.
type InvoiceResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	InvoiceNumber string `json:"invoice_number"`
	BillingPeriod string `json:"billing_period,omitempty"`
	Status        string `json:"status"`
	IssueDate     string `json:"issue_date"`
	DueDate       string `json:"due_date"`
	Subtotal      string `json:"subtotal"`
	Tax           string `json:"tax"`
	Total         string `json:"total"`
}

// CycleResponse is the JSON form of a billing cycle result.
type CycleResponse struct {
	RunID      string             `json:"run_id"`
	Period     string             `json:"period"`
	Generated  int                `json:"generated"`
	Skipped    int                `json:"skipped"`
	Skips      map[string]int     `json:"skips"`
	Errors     []string           `json:"errors"`
	Invoices   []*InvoiceResponse `json:"invoices"`
	Reconciled int                `json:"reconciled"`
}

func toInvoiceResponse(inv *models.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:            inv.ID.String(),
		UserID:        inv.UserID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		IssueDate:     inv.IssueDate.Format(dateLayout),
		DueDate:       inv.DueDate.Format(dateLayout),
		Subtotal:      billing.FormatAmount(inv.Subtotal),
		Tax:           billing.FormatAmount(inv.Tax),
		Total:         billing.FormatAmount(inv.Total),
	}
	if inv.BillingPeriod != nil {
		resp.BillingPeriod = *inv.BillingPeriod
	}
	return resp
}

// ToCycleResponse converts a cycle result to its JSON form.
func ToCycleResponse(result *service.CycleResult) *CycleResponse {
	resp := &CycleResponse{
		RunID:      result.RunID,
		Period:     result.Period.String(),
		Generated:  result.GeneratedCount,
		Skipped:    result.SkippedCount,
		Skips:      make(map[string]int, len(result.Skips)),
		Errors:     result.Errors,
		Invoices:   make([]*InvoiceResponse, 0, len(result.Invoices)),
		Reconciled: result.Reconciled,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	for reason, n := range result.Skips {
		resp.Skips[string(reason)] = n
	}
	for _, inv := range result.Invoices {
		resp.Invoices = append(resp.Invoices, toInvoiceResponse(inv))
	}
	return resp
}

// RunCycle handles POST /v1/billing/cycles
func (h *BillingHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	var req RunCycleHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, apierrors.NewValidationError("reference_date", "reference_date must be YYYY-MM-DD"))
		return
	}

	var cycleReq service.CycleRequest
	if req.ReferenceDate != "" {
		ref, err := time.ParseInLocation(dateLayout, req.ReferenceDate, h.loc)
		if err != nil {
			response.Error(w, apierrors.NewValidationError("reference_date", "reference_date must be YYYY-MM-DD"))
			return
		}
		cycleReq.ReferenceDate = &ref
	}

	result, err := h.billingService.RunCycle(r.Context(), cycleReq)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Invoices issued before the cut-off stand and must stay visible.
		if result != nil {
			response.ErrorWithData(w, apierrors.ErrCancelled, ToCycleResponse(result))
			return
		}
		response.Error(w, apierrors.ErrCancelled)
		return
	}
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, ToCycleResponse(result))
}

// Document handles GET /v1/invoices/{id}/document
func (h *BillingHandler) Document(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	// Render into a buffer first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	inv, err := h.billingService.RenderDocument(r.Context(), id, &buf)
	if err != nil {
		response.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.InvoiceNumber+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
