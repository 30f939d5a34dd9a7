package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mfortin/barbooks/internal/domain"
)

const timeEntryColumns = `id, firm_id, client_id, matter_id, user_id, staff_name,
	work_date, hours, hourly_rate, description, billable, billed, invoice_id, created_at`

type TimeEntryRepository struct {
	db *sql.DB
}

func NewTimeEntryRepository(db *sql.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// GetForUpdate loads and row-locks the requested entries so the
// billable/billed check and the billed-flag write happen under one lock.
// Returns entries in the order the ids were given.
func (r *TimeEntryRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, firmID uuid.UUID, ids []uuid.UUID) ([]domain.TimeEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+timeEntryColumns+` FROM time_entries
		WHERE firm_id = $1 AND id = ANY($2) FOR UPDATE`,
		firmID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]domain.TimeEntry, len(ids))
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("GetForUpdate: scan: %w", err)
		}
		byID[e.ID] = *e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetForUpdate: rows: %w", err)
	}

	entries := make([]domain.TimeEntry, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("GetForUpdate: time entry %s: %w", id, domain.ErrNotFound)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *TimeEntryRepository) MarkBilled(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, invoiceID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE time_entries SET billed = TRUE, invoice_id = $1 WHERE id = ANY($2)`,
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

func scanTimeEntry(s scanner) (*domain.TimeEntry, error) {
	var e domain.TimeEntry
	err := s.Scan(
		&e.ID, &e.FirmID, &e.ClientID, &e.MatterID, &e.UserID, &e.StaffName,
		&e.WorkDate, &e.Hours, &e.HourlyRate, &e.Description,
		&e.Billable, &e.Billed, &e.InvoiceID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
