package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit        TransactionType = "deposit"
	TransactionTypeTransferToFees TransactionType = "transfer_to_fees"
	TransactionTypeRefund         TransactionType = "refund"
	TransactionTypeInterest       TransactionType = "interest"
	TransactionTypeBankCharge     TransactionType = "bank_charge"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeTransferToFees,
		TransactionTypeRefund, TransactionTypeInterest, TransactionTypeBankCharge:
		return true
	}
	return false
}

// IsDebit reports whether the type reduces the client's trust balance.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TransactionTypeTransferToFees, TransactionTypeRefund, TransactionTypeBankCharge:
		return true
	}
	return false
}

// SignedAmount applies the ledger sign convention: deposits and interest
// add to the balance, transfers, refunds and bank charges subtract.
func (t TransactionType) SignedAmount(amount decimal.Decimal) decimal.Decimal {
	if t.IsDebit() {
		return amount.Neg()
	}
	return amount
}

type TrustAccount struct {
	ID             uuid.UUID
	FirmID         uuid.UUID
	AccountName    string
	Currency       string
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
}

// TrustTransaction is an immutable ledger entry. Corrections are recorded
// as new entries (refunds), never as updates.
type TrustTransaction struct {
	ID               uuid.UUID
	FirmID           uuid.UUID
	TrustAccountID   uuid.UUID
	ClientID         uuid.UUID
	MatterID         *uuid.UUID
	Type             TransactionType
	Amount           decimal.Decimal
	BalanceAfter     decimal.Decimal
	RelatedInvoiceID *uuid.UUID
	Description      *string
	TransactionDate  time.Time
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
}
