package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/auth"
	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/service/billing"
	"github.com/mfortin/barbooks/internal/tax"
)

const dateLayout = "2006-01-02"

type billingService interface {
	CreateInvoice(ctx context.Context, req billing.CreateInvoiceRequest) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, firmID, invoiceID uuid.UUID) (*domain.Invoice, error)
	SendInvoice(ctx context.Context, firmID, invoiceID uuid.UUID) (*domain.Invoice, error)
	RecalculateTotals(ctx context.Context, firmID, invoiceID uuid.UUID) (*domain.Invoice, error)
	RecordPayment(ctx context.Context, req billing.RecordPaymentRequest) (*domain.Payment, error)
	ListInvoicePayments(ctx context.Context, firmID, invoiceID uuid.UUID) ([]domain.Payment, error)
	GenerateInvoiceNumber(ctx context.Context, firmID uuid.UUID) (string, error)
}

type InvoiceHandler struct {
	billing billingService
}

func NewInvoiceHandler(billing billingService) *InvoiceHandler {
	return &InvoiceHandler{billing: billing}
}

type manualLineRequest struct {
	LineType    string          `json:"line_type"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Taxable     *bool           `json:"taxable"`
}

type createInvoiceRequest struct {
	ClientID     string              `json:"client_id"`
	TimeEntryIDs []string            `json:"time_entry_ids"`
	ExpenseIDs   []string            `json:"expense_ids"`
	ManualLines  []manualLineRequest `json:"manual_lines"`
	InvoiceDate  string              `json:"invoice_date"`
	DueDays      int                 `json:"due_days"`
	Province     string              `json:"province"`
	Notes        *string             `json:"notes"`
}

func (r createInvoiceRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ClientID == "" {
		errs = append(errs, FieldError{Field: "client_id", Message: "required"})
	} else if _, err := uuid.Parse(r.ClientID); err != nil {
		errs = append(errs, FieldError{Field: "client_id", Message: "must be a UUID"})
	}

	if r.Province != "" && !tax.IsSupported(r.Province) {
		errs = append(errs, FieldError{Field: "province", Message: "unsupported province code"})
	}
	if r.DueDays < 0 {
		errs = append(errs, FieldError{Field: "due_days", Message: "must not be negative"})
	}
	if r.InvoiceDate != "" {
		if _, err := time.Parse(dateLayout, r.InvoiceDate); err != nil {
			errs = append(errs, FieldError{Field: "invoice_date", Message: "must be YYYY-MM-DD"})
		}
	}

	for _, line := range r.ManualLines {
		if line.Description == "" {
			errs = append(errs, FieldError{Field: "manual_lines", Message: "description required on every line"})
			break
		}
		if line.LineType != "" && !domain.LineType(line.LineType).IsValid() {
			errs = append(errs, FieldError{Field: "manual_lines", Message: "invalid line_type"})
			break
		}
	}

	return errs
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	svcReq := billing.CreateInvoiceRequest{
		FirmID:   claims.FirmID,
		ClientID: uuid.MustParse(req.ClientID),
		DueDays:  req.DueDays,
		Province: req.Province,
		Notes:    req.Notes,
	}

	ids, fieldErr := parseUUIDs(req.TimeEntryIDs, "time_entry_ids")
	if fieldErr != nil {
		RespondValidationError(w, []FieldError{*fieldErr})
		return
	}
	svcReq.TimeEntryIDs = ids

	ids, fieldErr = parseUUIDs(req.ExpenseIDs, "expense_ids")
	if fieldErr != nil {
		RespondValidationError(w, []FieldError{*fieldErr})
		return
	}
	svcReq.ExpenseIDs = ids

	if req.InvoiceDate != "" {
		d, _ := time.Parse(dateLayout, req.InvoiceDate)
		svcReq.InvoiceDate = &d
	}

	for _, line := range req.ManualLines {
		svcReq.ManualLines = append(svcReq.ManualLines, billing.ManualLine{
			LineType:    domain.LineType(line.LineType),
			Description: line.Description,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Taxable:     line.Taxable,
		})
	}

	inv, err := h.billing.CreateInvoice(r.Context(), svcReq)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	invoiceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	inv, err := h.billing.GetInvoice(r.Context(), claims.FirmID, invoiceID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	invoiceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	inv, err := h.billing.SendInvoice(r.Context(), claims.FirmID, invoiceID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvoiceResponse(inv))
}

type recordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Method      string          `json:"method"`
	Notes       *string         `json:"notes"`
}

func (r recordPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if !r.Amount.GreaterThan(decimal.Zero) {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.Method == "" {
		errs = append(errs, FieldError{Field: "method", Message: "required"})
	}
	if r.PaymentDate != "" {
		if _, err := time.Parse(dateLayout, r.PaymentDate); err != nil {
			errs = append(errs, FieldError{Field: "payment_date", Message: "must be YYYY-MM-DD"})
		}
	}

	return errs
}

func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	invoiceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	date := time.Now().UTC()
	if req.PaymentDate != "" {
		date, _ = time.Parse(dateLayout, req.PaymentDate)
	}

	p, err := h.billing.RecordPayment(r.Context(), billing.RecordPaymentRequest{
		FirmID:    claims.FirmID,
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Date:      date,
		Method:    req.Method,
		Notes:     req.Notes,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *InvoiceHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	invoiceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	inv, err := h.billing.RecalculateTotals(r.Context(), claims.FirmID, invoiceID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *InvoiceHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	invoiceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	payments, err := h.billing.ListInvoicePayments(r.Context(), claims.FirmID, invoiceID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *InvoiceHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	number, err := h.billing.GenerateInvoiceNumber(r.Context(), claims.FirmID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"invoice_number": number})
}

func parseUUIDs(raw []string, field string) ([]uuid.UUID, *FieldError) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, &FieldError{Field: field, Message: "must be UUIDs"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}
