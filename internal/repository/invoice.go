package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mfortin/barbooks/internal/domain"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, firm_id, client_id, invoice_number, invoice_date, due_date,
	status, province, subtotal, tax_gst, tax_pst, tax_hst, tax_qst, total,
	amount_paid, balance_due, notes, created_at, updated_at`

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (
			id, firm_id, client_id, invoice_number, invoice_date, due_date,
			status, province, subtotal, tax_gst, tax_pst, tax_hst, tax_qst, total,
			amount_paid, balance_due, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		inv.ID, inv.FirmID, inv.ClientID, inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate,
		inv.Status, inv.Province, inv.Subtotal, inv.TaxGST, inv.TaxPST, inv.TaxHST, inv.TaxQST, inv.Total,
		inv.AmountPaid, inv.BalanceDue, inv.Notes, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		// 23505 unique_violation: invoice number race lost, caller may retry.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("Create: invoice number %s: %w", inv.InvoiceNumber, domain.ErrConflict)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, firmID, id uuid.UUID) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND firm_id = $2`, id, firmID,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

// GetForUpdate row-locks the invoice so concurrent payments serialize on
// the balance check.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, firmID, id uuid.UUID) (*domain.Invoice, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND firm_id = $2 FOR UPDATE`, id, firmID,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) UpdatePaymentState(ctx context.Context, tx *sql.Tx, id uuid.UUID, amountPaid, balanceDue decimal.Decimal, status domain.InvoiceStatus, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices SET amount_paid = $1, balance_due = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		amountPaid, balanceDue, status, now, id,
	)
	if err != nil {
		return fmt.Errorf("UpdatePaymentState: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdatePaymentState: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdatePaymentState: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *InvoiceRepository) UpdateTotals(ctx context.Context, tx *sql.Tx, inv *domain.Invoice, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices SET subtotal = $1, tax_gst = $2, tax_pst = $3, tax_hst = $4,
			tax_qst = $5, total = $6, balance_due = $7, updated_at = $8
		WHERE id = $9`,
		inv.Subtotal, inv.TaxGST, inv.TaxPST, inv.TaxHST,
		inv.TaxQST, inv.Total, inv.BalanceDue, now, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateTotals: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateTotals: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateTotals: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.InvoiceStatus, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

// NumbersWithPrefix returns the firm's invoice numbers starting with
// prefix (e.g. "INV-2026-"). Callers hold the firm row lock while
// generating the next number from these.
func (r *InvoiceRepository) NumbersWithPrefix(ctx context.Context, tx *sql.Tx, firmID uuid.UUID, prefix string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT invoice_number FROM invoices WHERE firm_id = $1 AND invoice_number LIKE $2 || '%'`,
		firmID, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("NumbersWithPrefix: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("NumbersWithPrefix: scan: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("NumbersWithPrefix: rows: %w", err)
	}
	return numbers, nil
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.Scan(
		&inv.ID, &inv.FirmID, &inv.ClientID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.DueDate,
		&inv.Status, &inv.Province, &inv.Subtotal, &inv.TaxGST, &inv.TaxPST, &inv.TaxHST, &inv.TaxQST, &inv.Total,
		&inv.AmountPaid, &inv.BalanceDue, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
