package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentSource string

const (
	PaymentSourceExternal PaymentSource = "external"
	PaymentSourceTrust    PaymentSource = "trust"
)

func (s PaymentSource) IsValid() bool {
	return s == PaymentSourceExternal || s == PaymentSourceTrust
}

// Payment is immutable once created. When Source is trust it is paired 1:1
// with a transfer_to_fees TrustTransaction for the same invoice and amount.
type Payment struct {
	ID                 uuid.UUID
	FirmID             uuid.UUID
	InvoiceID          uuid.UUID
	PaymentDate        time.Time
	Amount             decimal.Decimal
	Method             string
	Source             PaymentSource
	TrustTransactionID *uuid.UUID
	Notes              *string
	CreatedAt          time.Time
}
