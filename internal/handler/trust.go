package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/auth"
	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/money"
	"github.com/mfortin/barbooks/internal/service/billing"
	"github.com/mfortin/barbooks/internal/service/trust"
)

type trustService interface {
	CreateAccount(ctx context.Context, req trust.CreateAccountRequest) (*domain.TrustAccount, error)
	ListAccounts(ctx context.Context, firmID uuid.UUID) ([]domain.TrustAccount, error)
	RecordDeposit(ctx context.Context, req trust.RecordTransactionRequest) (*domain.TrustTransaction, error)
	RecordRefund(ctx context.Context, req trust.RecordTransactionRequest) (*domain.TrustTransaction, error)
	RecordInterest(ctx context.Context, req trust.RecordTransactionRequest) (*domain.TrustTransaction, error)
	RecordBankCharge(ctx context.Context, req trust.RecordTransactionRequest) (*domain.TrustTransaction, error)
	GetClientTotalBalance(ctx context.Context, firmID, clientID uuid.UUID) (decimal.Decimal, error)
	ListAccountTransactions(ctx context.Context, firmID, accountID uuid.UUID, limit, offset int) ([]domain.TrustTransaction, error)
	ListClientTransactions(ctx context.Context, firmID, accountID, clientID uuid.UUID) ([]domain.TrustTransaction, error)
	ThreeWayReconciliation(ctx context.Context, firmID, accountID uuid.UUID, bankBalance decimal.Decimal) (*trust.Reconciliation, error)
}

type transferService interface {
	TransferTrustToFees(ctx context.Context, req billing.TransferToFeesRequest) (*domain.Payment, error)
}

type TrustHandler struct {
	trust     trustService
	transfers transferService
}

func NewTrustHandler(trustSvc trustService, transfers transferService) *TrustHandler {
	return &TrustHandler{trust: trustSvc, transfers: transfers}
}

type createTrustAccountRequest struct {
	AccountName string `json:"account_name"`
	Currency    string `json:"currency"`
}

func (r createTrustAccountRequest) Validate() []FieldError {
	var errs []FieldError
	if r.AccountName == "" {
		errs = append(errs, FieldError{Field: "account_name", Message: "required"})
	}
	return errs
}

func (h *TrustHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createTrustAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	account, err := h.trust.CreateAccount(r.Context(), trust.CreateAccountRequest{
		FirmID:      claims.FirmID,
		AccountName: req.AccountName,
		Currency:    req.Currency,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTrustAccountResponse(account))
}

func (h *TrustHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accounts, err := h.trust.ListAccounts(r.Context(), claims.FirmID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make([]trustAccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toTrustAccountResponse(&accounts[i]))
	}
	RespondSuccess(w, http.StatusOK, out)
}

type trustTransactionRequest struct {
	ClientID        string          `json:"client_id"`
	MatterID        string          `json:"matter_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date"`
	Description     *string         `json:"description"`
}

func (r trustTransactionRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ClientID == "" {
		errs = append(errs, FieldError{Field: "client_id", Message: "required"})
	} else if _, err := uuid.Parse(r.ClientID); err != nil {
		errs = append(errs, FieldError{Field: "client_id", Message: "must be a UUID"})
	}
	if r.MatterID != "" {
		if _, err := uuid.Parse(r.MatterID); err != nil {
			errs = append(errs, FieldError{Field: "matter_id", Message: "must be a UUID"})
		}
	}
	if !r.Amount.GreaterThan(decimal.Zero) {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.TransactionDate != "" {
		if _, err := time.Parse(dateLayout, r.TransactionDate); err != nil {
			errs = append(errs, FieldError{Field: "transaction_date", Message: "must be YYYY-MM-DD"})
		}
	}

	return errs
}

func (r trustTransactionRequest) toServiceRequest(claims *auth.Claims, accountID uuid.UUID) trust.RecordTransactionRequest {
	req := trust.RecordTransactionRequest{
		FirmID:      claims.FirmID,
		AccountID:   accountID,
		ClientID:    uuid.MustParse(r.ClientID),
		Amount:      r.Amount,
		Date:        time.Now().UTC(),
		ActorID:     claims.UserID,
		Description: r.Description,
	}
	if r.MatterID != "" {
		id := uuid.MustParse(r.MatterID)
		req.MatterID = &id
	}
	if r.TransactionDate != "" {
		req.Date, _ = time.Parse(dateLayout, r.TransactionDate)
	}
	return req
}

func (h *TrustHandler) RecordDeposit(w http.ResponseWriter, r *http.Request) {
	h.recordTransaction(w, r, h.trust.RecordDeposit)
}

func (h *TrustHandler) RecordRefund(w http.ResponseWriter, r *http.Request) {
	h.recordTransaction(w, r, h.trust.RecordRefund)
}

func (h *TrustHandler) RecordInterest(w http.ResponseWriter, r *http.Request) {
	h.recordTransaction(w, r, h.trust.RecordInterest)
}

func (h *TrustHandler) RecordBankCharge(w http.ResponseWriter, r *http.Request) {
	h.recordTransaction(w, r, h.trust.RecordBankCharge)
}

func (h *TrustHandler) recordTransaction(w http.ResponseWriter, r *http.Request, record func(context.Context, trust.RecordTransactionRequest) (*domain.TrustTransaction, error)) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req trustTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	txn, err := record(r.Context(), req.toServiceRequest(claims, accountID))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTrustTransactionResponse(txn))
}

type transferToFeesRequest struct {
	trustTransactionRequest
	InvoiceID string `json:"invoice_id"`
}

func (r transferToFeesRequest) Validate() []FieldError {
	errs := r.trustTransactionRequest.Validate()
	if r.InvoiceID == "" {
		errs = append(errs, FieldError{Field: "invoice_id", Message: "required"})
	} else if _, err := uuid.Parse(r.InvoiceID); err != nil {
		errs = append(errs, FieldError{Field: "invoice_id", Message: "must be a UUID"})
	}
	return errs
}

func (h *TrustHandler) TransferToFees(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req transferToFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	base := req.toServiceRequest(claims, accountID)
	p, err := h.transfers.TransferTrustToFees(r.Context(), billing.TransferToFeesRequest{
		FirmID:      base.FirmID,
		ActorID:     base.ActorID,
		AccountID:   base.AccountID,
		ClientID:    base.ClientID,
		MatterID:    base.MatterID,
		InvoiceID:   uuid.MustParse(req.InvoiceID),
		Amount:      base.Amount,
		Date:        base.Date,
		Description: base.Description,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *TrustHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	txns, err := h.trust.ListAccountTransactions(r.Context(), claims.FirmID, accountID, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make([]trustTransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, toTrustTransactionResponse(&txns[i]))
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *TrustHandler) ClientStatement(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	clientID, err := uuid.Parse(r.PathValue("client_id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	txns, err := h.trust.ListClientTransactions(r.Context(), claims.FirmID, accountID, clientID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make([]trustTransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, toTrustTransactionResponse(&txns[i]))
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *TrustHandler) ClientBalance(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	clientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	balance, err := h.trust.GetClientTotalBalance(r.Context(), claims.FirmID, clientID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, clientBalanceResponse{ClientID: clientID, Balance: balance})
}

func (h *TrustHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	bankBalance, err := money.Parse(r.URL.Query().Get("bank_balance"))
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "bank_balance", Message: "must be a decimal"}})
		return
	}

	report, err := h.trust.ThreeWayReconciliation(r.Context(), claims.FirmID, accountID, bankBalance)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReconciliationResponse(report))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
