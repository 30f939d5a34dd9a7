package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrConflict              = &AppError{http.StatusConflict, "CONFLICT", "Resource was modified concurrently, please retry"}
	ErrInvalidState          = &AppError{http.StatusUnprocessableEntity, "INVALID_STATE", "Operation not allowed in current state"}
	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInsufficientFunds     = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_TRUST_FUNDS", "Insufficient trust funds for this client"}
	ErrExceedsInvoiceBalance = &AppError{http.StatusUnprocessableEntity, "EXCEEDS_INVOICE_BALANCE", "Amount exceeds the invoice balance due"}
	ErrInvoiceAlreadyPaid    = &AppError{http.StatusUnprocessableEntity, "INVOICE_ALREADY_PAID", "Invoice is already paid"}
	ErrUnsupportedProvince   = &AppError{http.StatusBadRequest, "UNSUPPORTED_PROVINCE", "Province code is not supported"}
	ErrEntryAlreadyBilled    = &AppError{http.StatusConflict, "ENTRY_ALREADY_BILLED", "Entry has already been billed"}
	ErrEntryNotBillable      = &AppError{http.StatusUnprocessableEntity, "ENTRY_NOT_BILLABLE", "Entry is not billable"}
)
