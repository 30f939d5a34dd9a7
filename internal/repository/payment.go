package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mfortin/barbooks/internal/domain"
)

const paymentColumns = `id, firm_id, invoice_id, payment_date, amount, payment_method,
	payment_source, trust_transaction_id, notes, created_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (
			id, firm_id, invoice_id, payment_date, amount, payment_method,
			payment_source, trust_transaction_id, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.FirmID, p.InvoiceID, p.PaymentDate, p.Amount, p.Method,
		p.Source, p.TrustTransactionID, p.Notes, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE invoice_id = $1 ORDER BY created_at`, invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByInvoiceID: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		err := rows.Scan(
			&p.ID, &p.FirmID, &p.InvoiceID, &p.PaymentDate, &p.Amount, &p.Method,
			&p.Source, &p.TrustTransactionID, &p.Notes, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("GetByInvoiceID: scan: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByInvoiceID: rows: %w", err)
	}
	return payments, nil
}
