package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaxTreatment string

const (
	TaxTreatmentTaxable    TaxTreatment = "taxable"
	TaxTreatmentNonTaxable TaxTreatment = "non_taxable"
)

type TimeEntry struct {
	ID          uuid.UUID
	FirmID      uuid.UUID
	ClientID    uuid.UUID
	MatterID    *uuid.UUID
	UserID      uuid.UUID
	StaffName   string
	WorkDate    time.Time
	Hours       decimal.Decimal
	HourlyRate  decimal.Decimal
	Description string
	Billable    bool
	Billed      bool
	InvoiceID   *uuid.UUID
	CreatedAt   time.Time
}

type Expense struct {
	ID           uuid.UUID
	FirmID       uuid.UUID
	ClientID     uuid.UUID
	MatterID     *uuid.UUID
	ExpenseDate  time.Time
	Description  string
	Amount       decimal.Decimal
	TaxTreatment TaxTreatment
	Billable     bool
	Billed       bool
	InvoiceID    *uuid.UUID
	CreatedAt    time.Time
}
