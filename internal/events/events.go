// Package events defines the domain facts the billing and trust cores emit
// for external audit/compliance consumers. Facts are published after the
// owning transaction commits; publishing is best-effort and never rolls a
// committed operation back.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Nop discards all events. Used when no broker is configured and in tests
// that do not assert on facts.
type Nop struct{}

func (Nop) Publish(context.Context, any) error { return nil }

type InvoiceCreated struct {
	Kind          string          `json:"kind"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	FirmID        uuid.UUID       `json:"firm_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type InvoiceSent struct {
	Kind       string    `json:"kind"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
	FirmID     uuid.UUID `json:"firm_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PaymentRecorded struct {
	Kind       string          `json:"kind"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	FirmID     uuid.UUID       `json:"firm_id"`
	Amount     decimal.Decimal `json:"amount"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type TrustTransactionRecorded struct {
	Kind           string          `json:"kind"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	FirmID         uuid.UUID       `json:"firm_id"`
	TrustAccountID uuid.UUID       `json:"trust_account_id"`
	ClientID       uuid.UUID       `json:"client_id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

const (
	KindInvoiceCreated           = "invoice.created"
	KindInvoiceSent              = "invoice.sent"
	KindPaymentRecorded          = "payment.recorded"
	KindTrustTransactionRecorded = "trust.transaction_recorded"
)
