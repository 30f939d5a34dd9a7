package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft      InvoiceStatus = "draft"
	InvoiceStatusSent       InvoiceStatus = "sent"
	InvoiceStatusViewed     InvoiceStatus = "viewed"
	InvoiceStatusPartial    InvoiceStatus = "partial"
	InvoiceStatusPaid       InvoiceStatus = "paid"
	InvoiceStatusOverdue    InvoiceStatus = "overdue"
	InvoiceStatusWrittenOff InvoiceStatus = "written_off"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed,
		InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusWrittenOff:
		return true
	}
	return false
}

// AcceptsPayment reports whether a payment may still be applied.
func (s InvoiceStatus) AcceptsPayment() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed,
		InvoiceStatusPartial, InvoiceStatusOverdue:
		return true
	}
	return false
}

type LineType string

const (
	LineTypeTime    LineType = "time"
	LineTypeExpense LineType = "expense"
	LineTypeFlatFee LineType = "flat_fee"
	LineTypeCustom  LineType = "custom"
)

func (t LineType) IsValid() bool {
	switch t {
	case LineTypeTime, LineTypeExpense, LineTypeFlatFee, LineTypeCustom:
		return true
	}
	return false
}

type Invoice struct {
	ID            uuid.UUID
	FirmID        uuid.UUID
	ClientID      uuid.UUID
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       time.Time
	Status        InvoiceStatus
	Province      string
	Subtotal      decimal.Decimal
	TaxGST        decimal.Decimal
	TaxPST        decimal.Decimal
	TaxHST        decimal.Decimal
	TaxQST        decimal.Decimal
	Total         decimal.Decimal
	AmountPaid    decimal.Decimal
	BalanceDue    decimal.Decimal
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	LineItems []InvoiceLineItem
}

type InvoiceLineItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	LineType    LineType
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
	Taxable     bool
	TimeEntryID *uuid.UUID
	ExpenseID   *uuid.UUID
	SortOrder   int
}
