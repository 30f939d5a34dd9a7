package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mfortin/barbooks/internal/domain"
)

const expenseColumns = `id, firm_id, client_id, matter_id, expense_date, description,
	amount, tax_treatment, billable, billed, invoice_id, created_at`

type ExpenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// GetForUpdate loads and row-locks the requested expenses, in the order
// the ids were given.
func (r *ExpenseRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, firmID uuid.UUID, ids []uuid.UUID) ([]domain.Expense, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		WHERE firm_id = $1 AND id = ANY($2) FOR UPDATE`,
		firmID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]domain.Expense, len(ids))
	for rows.Next() {
		var e domain.Expense
		err := rows.Scan(
			&e.ID, &e.FirmID, &e.ClientID, &e.MatterID, &e.ExpenseDate, &e.Description,
			&e.Amount, &e.TaxTreatment, &e.Billable, &e.Billed, &e.InvoiceID, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("GetForUpdate: scan: %w", err)
		}
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetForUpdate: rows: %w", err)
	}

	expenses := make([]domain.Expense, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("GetForUpdate: expense %s: %w", id, domain.ErrNotFound)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (r *ExpenseRepository) MarkBilled(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, invoiceID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET billed = TRUE, invoice_id = $1 WHERE id = ANY($2)`,
		invoiceID, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("MarkBilled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkBilled: rows affected: %w", err)
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("MarkBilled: updated %d of %d: %w", n, len(ids), domain.ErrConflict)
	}
	return nil
}
