package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrInvalidState          = errors.New("invalid state for operation")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInsufficientFunds     = errors.New("insufficient trust funds")
	ErrExceedsInvoiceBalance = errors.New("amount exceeds invoice balance")
	ErrInvoiceAlreadyPaid    = errors.New("invoice already paid")
	ErrUnsupportedProvince   = errors.New("unsupported province code")
	ErrEntryAlreadyBilled    = errors.New("entry already billed")
	ErrEntryNotBillable      = errors.New("entry not billable")
)
