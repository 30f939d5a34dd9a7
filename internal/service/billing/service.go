// Package billing implements the invoice engine and the cross-aggregate
// billing coordinator: invoice construction from unbilled work, Canadian
// sales tax, invoice numbering, payments, and trust-to-fees transfers.
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
	"github.com/mfortin/barbooks/internal/service/trust"
)

type firmRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Firm, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Firm, error)
}

type clientRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
}

type invoiceRepo interface {
	Create(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error
	GetByID(ctx context.Context, firmID, id uuid.UUID) (*domain.Invoice, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, firmID, id uuid.UUID) (*domain.Invoice, error)
	UpdatePaymentState(ctx context.Context, tx *sql.Tx, id uuid.UUID, amountPaid, balanceDue decimal.Decimal, status domain.InvoiceStatus, now time.Time) error
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.InvoiceStatus, now time.Time) error
	UpdateTotals(ctx context.Context, tx *sql.Tx, inv *domain.Invoice, now time.Time) error
	NumbersWithPrefix(ctx context.Context, tx *sql.Tx, firmID uuid.UUID, prefix string) ([]string, error)
}

type invoiceLineRepo interface {
	CreateBatch(ctx context.Context, tx *sql.Tx, items []domain.InvoiceLineItem) error
	GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceLineItem, error)
}

type paymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error
	GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]domain.Payment, error)
}

type timeEntryRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, firmID uuid.UUID, ids []uuid.UUID) ([]domain.TimeEntry, error)
	MarkBilled(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, invoiceID uuid.UUID) error
}

type expenseRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, firmID uuid.UUID, ids []uuid.UUID) ([]domain.Expense, error)
	MarkBilled(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, invoiceID uuid.UUID) error
}

// trustLedger is the slice of the trust service the coordinator needs:
// a ledger append that runs inside the coordinator's own transaction.
type trustLedger interface {
	RecordTransactionTx(ctx context.Context, tx *sql.Tx, req trust.RecordTransactionRequest) (*domain.TrustTransaction, error)
}

type Defaults struct {
	Province string
	DueDays  int
}

type Service struct {
	firms    firmRepo
	clients  clientRepo
	invoices invoiceRepo
	lines    invoiceLineRepo
	payments paymentRepo
	timeEnts timeEntryRepo
	expenses expenseRepo
	ledger   trustLedger
	db       *sql.DB
	events   events.Publisher
	defaults Defaults
}

func NewService(
	firms firmRepo,
	clients clientRepo,
	invoices invoiceRepo,
	lines invoiceLineRepo,
	payments paymentRepo,
	timeEnts timeEntryRepo,
	expenses expenseRepo,
	ledger trustLedger,
	db *sql.DB,
	publisher events.Publisher,
	defaults Defaults,
) *Service {
	if defaults.Province == "" {
		defaults.Province = "ON"
	}
	if defaults.DueDays <= 0 {
		defaults.DueDays = 30
	}
	return &Service{
		firms:    firms,
		clients:  clients,
		invoices: invoices,
		lines:    lines,
		payments: payments,
		timeEnts: timeEnts,
		expenses: expenses,
		ledger:   ledger,
		db:       db,
		events:   publisher,
		defaults: defaults,
	}
}

func (s *Service) GetInvoice(ctx context.Context, firmID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, firmID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: %w", err)
	}

	items, err := s.lines.GetByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: %w", err)
	}
	inv.LineItems = items
	return inv, nil
}

// ListInvoicePayments returns every payment applied to the invoice,
// oldest first.
func (s *Service) ListInvoicePayments(ctx context.Context, firmID, invoiceID uuid.UUID) ([]domain.Payment, error) {
	inv, err := s.invoices.GetByID(ctx, firmID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ListInvoicePayments: %w", err)
	}

	payments, err := s.payments.GetByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("ListInvoicePayments: %w", err)
	}
	return payments, nil
}

// SendInvoice moves a draft to sent. Any other starting status is an
// invalid transition.
func (s *Service) SendInvoice(ctx context.Context, firmID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("SendInvoice: begin tx: %w", err)
	}
	defer tx.Rollback()

	inv, err := s.invoices.GetForUpdate(ctx, tx, firmID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("SendInvoice: %w", err)
	}
	if inv.Status != domain.InvoiceStatusDraft {
		return nil, fmt.Errorf("SendInvoice: status %s: %w", inv.Status, domain.ErrInvalidState)
	}

	now := time.Now().UTC()
	if err := s.invoices.UpdateStatus(ctx, tx, inv.ID, domain.InvoiceStatusSent, now); err != nil {
		return nil, fmt.Errorf("SendInvoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("SendInvoice: commit: %w", err)
	}

	inv.Status = domain.InvoiceStatusSent
	inv.UpdatedAt = now

	s.publish(ctx, events.InvoiceSent{
		Kind:       events.KindInvoiceSent,
		InvoiceID:  inv.ID,
		FirmID:     inv.FirmID,
		OccurredAt: now,
	})
	return inv, nil
}

func (s *Service) publish(ctx context.Context, fact any) {
	if err := s.events.Publish(ctx, fact); err != nil {
		logging.FromContext(ctx).Error("publish billing fact", "error", err)
	}
}
