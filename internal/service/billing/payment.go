package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/events"
	"github.com/mfortin/barbooks/internal/logging"
	"github.com/mfortin/barbooks/internal/money"
	"github.com/mfortin/barbooks/internal/service/trust"
)

type RecordPaymentRequest struct {
	FirmID    uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Date      time.Time
	Method    string
	Notes     *string
}

// RecordPayment applies an external payment against an invoice. The
// balance check and the status update run under the invoice row lock.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, err := s.applyPayment(ctx, tx, req, domain.PaymentSourceExternal, nil)
	if err != nil {
		return nil, fmt.Errorf("RecordPayment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RecordPayment: commit: %w", err)
	}

	s.publishPayment(ctx, p)
	return p, nil
}

// applyPayment is the shared invoice side of recordPayment and
// transferTrustToFees: lock the invoice, check its state and balance,
// insert the payment row, advance amountPaid/balanceDue/status.
func (s *Service) applyPayment(ctx context.Context, tx *sql.Tx, req RecordPaymentRequest, source domain.PaymentSource, trustTxnID *uuid.UUID) (*domain.Payment, error) {
	amount := money.RoundCents(req.Amount)
	if !money.IsPositive(amount) {
		return nil, fmt.Errorf("applyPayment: %w", domain.ErrInvalidAmount)
	}

	inv, err := s.invoices.GetForUpdate(ctx, tx, req.FirmID, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("applyPayment: %w", err)
	}
	if inv.Status == domain.InvoiceStatusPaid {
		return nil, fmt.Errorf("applyPayment: %w", domain.ErrInvoiceAlreadyPaid)
	}
	if !inv.Status.AcceptsPayment() {
		return nil, fmt.Errorf("applyPayment: status %s: %w", inv.Status, domain.ErrInvalidState)
	}
	if amount.GreaterThan(inv.BalanceDue) {
		return nil, fmt.Errorf("applyPayment: %s exceeds balance %s: %w",
			amount, inv.BalanceDue, domain.ErrExceedsInvoiceBalance)
	}

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:                 uuid.New(),
		FirmID:             req.FirmID,
		InvoiceID:          inv.ID,
		PaymentDate:        req.Date,
		Amount:             amount,
		Method:             req.Method,
		Source:             source,
		TrustTransactionID: trustTxnID,
		Notes:              req.Notes,
		CreatedAt:          now,
	}
	if err := s.payments.Create(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("applyPayment: create payment: %w", err)
	}

	amountPaid := money.RoundCents(inv.AmountPaid.Add(amount))
	balanceDue := money.RoundCents(inv.Total.Sub(amountPaid))
	status := domain.InvoiceStatusPartial
	if !money.IsPositive(balanceDue) {
		status = domain.InvoiceStatusPaid
	}
	if err := s.invoices.UpdatePaymentState(ctx, tx, inv.ID, amountPaid, balanceDue, status, now); err != nil {
		return nil, fmt.Errorf("applyPayment: %w", err)
	}

	return p, nil
}

type TransferToFeesRequest struct {
	FirmID      uuid.UUID
	ActorID     uuid.UUID
	AccountID   uuid.UUID
	ClientID    uuid.UUID
	MatterID    *uuid.UUID
	InvoiceID   uuid.UUID
	Amount      decimal.Decimal
	Date        time.Time
	Description *string
}

// TransferTrustToFees moves client trust funds onto an invoice: it debits
// the trust ledger and credits the invoice in one unit of work. Any
// failure after the ledger append rolls the whole operation back, so the
// ledger entry, the account balance, the payment row and the invoice state
// are only ever visible together.
func (s *Service) TransferTrustToFees(ctx context.Context, req TransferToFeesRequest) (*domain.Payment, error) {
	inv, err := s.invoices.GetByID(ctx, req.FirmID, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("TransferTrustToFees: %w", err)
	}
	if inv.ClientID != req.ClientID {
		return nil, fmt.Errorf("TransferTrustToFees: invoice client mismatch: %w", domain.ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("TransferTrustToFees: begin tx: %w", err)
	}
	defer tx.Rollback()

	invoiceID := req.InvoiceID
	txn, err := s.ledger.RecordTransactionTx(ctx, tx, trust.RecordTransactionRequest{
		FirmID:           req.FirmID,
		AccountID:        req.AccountID,
		ClientID:         req.ClientID,
		MatterID:         req.MatterID,
		Type:             domain.TransactionTypeTransferToFees,
		Amount:           req.Amount,
		Date:             req.Date,
		ActorID:          req.ActorID,
		Description:      req.Description,
		RelatedInvoiceID: &invoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("TransferTrustToFees: %w", err)
	}

	p, err := s.applyPayment(ctx, tx, RecordPaymentRequest{
		FirmID:    req.FirmID,
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Date:      req.Date,
		Method:    "trust_transfer",
		Notes:     req.Description,
	}, domain.PaymentSourceTrust, &txn.ID)
	if err != nil {
		return nil, fmt.Errorf("TransferTrustToFees: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("TransferTrustToFees: commit: %w", err)
	}

	s.publishPayment(ctx, p)
	s.publish(ctx, events.TrustTransactionRecorded{
		Kind:           events.KindTrustTransactionRecorded,
		TransactionID:  txn.ID,
		FirmID:         txn.FirmID,
		TrustAccountID: txn.TrustAccountID,
		ClientID:       txn.ClientID,
		Type:           string(txn.Type),
		Amount:         txn.Amount,
		BalanceAfter:   txn.BalanceAfter,
		OccurredAt:     txn.CreatedAt,
	})

	log := logging.FromContext(ctx)
	log.Info("trust transfer applied",
		"invoice_id", req.InvoiceID,
		"trust_transaction_id", txn.ID,
		"amount", req.Amount,
	)
	return p, nil
}

func (s *Service) publishPayment(ctx context.Context, p *domain.Payment) {
	s.publish(ctx, events.PaymentRecorded{
		Kind:       events.KindPaymentRecorded,
		PaymentID:  p.ID,
		InvoiceID:  p.InvoiceID,
		FirmID:     p.FirmID,
		Amount:     p.Amount,
		Source:     string(p.Source),
		OccurredAt: p.CreatedAt,
	})
}
