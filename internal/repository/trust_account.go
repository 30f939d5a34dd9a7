package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mfortin/barbooks/internal/domain"
	"github.com/shopspring/decimal"
)

const trustAccountColumns = `id, firm_id, account_name, currency, current_balance, created_at`

type TrustAccountRepository struct {
	db *sql.DB
}

func NewTrustAccountRepository(db *sql.DB) *TrustAccountRepository {
	return &TrustAccountRepository{db: db}
}

func (r *TrustAccountRepository) Create(ctx context.Context, account *domain.TrustAccount) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trust_accounts (
			id, firm_id, account_name, currency, current_balance, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, account.FirmID, account.AccountName, account.Currency,
		account.CurrentBalance, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TrustAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrustAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+trustAccountColumns+` FROM trust_accounts WHERE id = $1`, id,
	)
	a, err := scanTrustAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

// GetForUpdate row-locks the account for the duration of a
// check-then-write sequence. Every trust debit takes this lock before
// reading the client balance so concurrent debits serialize.
func (r *TrustAccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.TrustAccount, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+trustAccountColumns+` FROM trust_accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanTrustAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

func (r *TrustAccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE trust_accounts SET current_balance = $1 WHERE id = $2`,
		newBalance, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *TrustAccountRepository) ListByFirm(ctx context.Context, firmID uuid.UUID) ([]domain.TrustAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trustAccountColumns+` FROM trust_accounts WHERE firm_id = $1 ORDER BY created_at`, firmID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByFirm: %w", err)
	}
	defer rows.Close()

	var accounts []domain.TrustAccount
	for rows.Next() {
		a, err := scanTrustAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByFirm: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByFirm: rows: %w", err)
	}
	return accounts, nil
}

func scanTrustAccount(s scanner) (*domain.TrustAccount, error) {
	var a domain.TrustAccount
	err := s.Scan(&a.ID, &a.FirmID, &a.AccountName, &a.Currency, &a.CurrentBalance, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
