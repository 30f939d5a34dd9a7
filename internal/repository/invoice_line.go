package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mfortin/barbooks/internal/domain"
)

const lineItemColumns = `id, invoice_id, line_type, description, quantity, rate, amount,
	taxable, time_entry_id, expense_id, sort_order`

type InvoiceLineRepository struct {
	db *sql.DB
}

func NewInvoiceLineRepository(db *sql.DB) *InvoiceLineRepository {
	return &InvoiceLineRepository{db: db}
}

func (r *InvoiceLineRepository) CreateBatch(ctx context.Context, tx *sql.Tx, items []domain.InvoiceLineItem) error {
	for i := range items {
		item := &items[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO invoice_line_items (
				id, invoice_id, line_type, description, quantity, rate, amount,
				taxable, time_entry_id, expense_id, sort_order
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, item.InvoiceID, item.LineType, item.Description,
			item.Quantity, item.Rate, item.Amount,
			item.Taxable, item.TimeEntryID, item.ExpenseID, item.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("CreateBatch: item %d: %w", i, err)
		}
	}
	return nil
}

func (r *InvoiceLineRepository) GetByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]domain.InvoiceLineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+lineItemColumns+` FROM invoice_line_items
		WHERE invoice_id = $1 ORDER BY sort_order`, invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByInvoiceID: %w", err)
	}
	defer rows.Close()

	var items []domain.InvoiceLineItem
	for rows.Next() {
		var item domain.InvoiceLineItem
		err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.LineType, &item.Description,
			&item.Quantity, &item.Rate, &item.Amount,
			&item.Taxable, &item.TimeEntryID, &item.ExpenseID, &item.SortOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("GetByInvoiceID: scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByInvoiceID: rows: %w", err)
	}
	return items, nil
}
