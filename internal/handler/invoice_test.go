package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfortin/barbooks/internal/auth"
	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/service/billing"
)

type mockBillingService struct {
	invoice *domain.Invoice
	payment *domain.Payment
	err     error

	createReq *billing.CreateInvoiceRequest
}

func (m *mockBillingService) CreateInvoice(_ context.Context, req billing.CreateInvoiceRequest) (*domain.Invoice, error) {
	m.createReq = &req
	return m.invoice, m.err
}

func (m *mockBillingService) GetInvoice(context.Context, uuid.UUID, uuid.UUID) (*domain.Invoice, error) {
	return m.invoice, m.err
}

func (m *mockBillingService) SendInvoice(context.Context, uuid.UUID, uuid.UUID) (*domain.Invoice, error) {
	return m.invoice, m.err
}

func (m *mockBillingService) RecalculateTotals(context.Context, uuid.UUID, uuid.UUID) (*domain.Invoice, error) {
	return m.invoice, m.err
}

func (m *mockBillingService) RecordPayment(context.Context, billing.RecordPaymentRequest) (*domain.Payment, error) {
	return m.payment, m.err
}

func (m *mockBillingService) ListInvoicePayments(context.Context, uuid.UUID, uuid.UUID) ([]domain.Payment, error) {
	if m.payment != nil {
		return []domain.Payment{*m.payment}, m.err
	}
	return nil, m.err
}

func (m *mockBillingService) GenerateInvoiceNumber(context.Context, uuid.UUID) (string, error) {
	return "INV-2026-0001", m.err
}

func authedRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	claims := &auth.Claims{UserID: uuid.New(), FirmID: uuid.New()}
	return r.WithContext(auth.ContextWithClaims(r.Context(), claims))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func sampleInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:            uuid.New(),
		FirmID:        uuid.New(),
		ClientID:      uuid.New(),
		InvoiceNumber: "INV-2026-0001",
		Status:        domain.InvoiceStatusDraft,
		Province:      "ON",
		Subtotal:      decimal.RequireFromString("500.00"),
		TaxHST:        decimal.RequireFromString("65.00"),
		Total:         decimal.RequireFromString("565.00"),
		BalanceDue:    decimal.RequireFromString("565.00"),
	}
}

func TestInvoiceCreate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "missing client_id",
			body:     `{"time_entry_ids":[]}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed client_id",
			body:     `{"client_id":"not-a-uuid"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unsupported province",
			body:     fmt.Sprintf(`{"client_id":"%s","province":"XX"}`, uuid.New()),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "negative due_days",
			body:     fmt.Sprintf(`{"client_id":"%s","due_days":-1}`, uuid.New()),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad invoice_date format",
			body:     fmt.Sprintf(`{"client_id":"%s","invoice_date":"20/01/2026"}`, uuid.New()),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "manual line without description",
			body:     fmt.Sprintf(`{"client_id":"%s","manual_lines":[{"quantity":"1","rate":"100"}]}`, uuid.New()),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not json",
			body:     `{{{`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInvoiceHandler(&mockBillingService{invoice: sampleInvoice()})
			rec := httptest.NewRecorder()

			h.Create(rec, authedRequest(http.MethodPost, "/api/v1/invoices", tt.body))

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decodeEnvelope(t, rec)
			assert.False(t, resp.Success)
		})
	}
}

func TestInvoiceCreate_Success(t *testing.T) {
	mock := &mockBillingService{invoice: sampleInvoice()}
	h := NewInvoiceHandler(mock)
	rec := httptest.NewRecorder()

	entryID := uuid.New()
	body := fmt.Sprintf(`{"client_id":"%s","time_entry_ids":["%s"],"province":"ON"}`, uuid.New(), entryID)
	h.Create(rec, authedRequest(http.MethodPost, "/api/v1/invoices", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)

	require.NotNil(t, mock.createReq)
	assert.Equal(t, "ON", mock.createReq.Province)
	require.Len(t, mock.createReq.TimeEntryIDs, 1)
	assert.Equal(t, entryID, mock.createReq.TimeEntryIDs[0])
}

func TestInvoiceCreate_Unauthenticated(t *testing.T) {
	h := NewInvoiceHandler(&mockBillingService{})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{}`))
	h.Create(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvoiceHandler_DomainErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "not found", err: domain.ErrNotFound, wantCode: http.StatusNotFound, wantErr: "RESOURCE_NOT_FOUND"},
		{name: "already billed", err: domain.ErrEntryAlreadyBilled, wantCode: http.StatusConflict, wantErr: "ENTRY_ALREADY_BILLED"},
		{name: "not billable", err: domain.ErrEntryNotBillable, wantCode: http.StatusUnprocessableEntity, wantErr: "ENTRY_NOT_BILLABLE"},
		{name: "unsupported province", err: domain.ErrUnsupportedProvince, wantCode: http.StatusBadRequest, wantErr: "UNSUPPORTED_PROVINCE"},
		{name: "invalid state", err: domain.ErrInvalidState, wantCode: http.StatusUnprocessableEntity, wantErr: "INVALID_STATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInvoiceHandler(&mockBillingService{err: fmt.Errorf("CreateInvoice: %w", tt.err)})
			rec := httptest.NewRecorder()

			body := fmt.Sprintf(`{"client_id":"%s","time_entry_ids":["%s"]}`, uuid.New(), uuid.New())
			h.Create(rec, authedRequest(http.MethodPost, "/api/v1/invoices", body))

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decodeEnvelope(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}

func TestRecordPaymentRequest_Validation(t *testing.T) {
	h := NewInvoiceHandler(&mockBillingService{payment: &domain.Payment{ID: uuid.New()}})

	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodPost, "/api/v1/invoices/"+uuid.NewString()+"/payments", `{"amount":"-5.00","method":"eft"}`)
	r.SetPathValue("id", uuid.NewString())
	h.RecordPayment(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
