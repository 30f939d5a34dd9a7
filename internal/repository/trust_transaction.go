package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mfortin/barbooks/internal/domain"
	"github.com/shopspring/decimal"
)

const trustTransactionColumns = `id, firm_id, trust_account_id, client_id, matter_id,
	transaction_type, amount, balance_after, related_invoice_id, description,
	transaction_date, created_by, created_at`

// signedAmount mirrors domain.TransactionType.SignedAmount in SQL.
const signedAmount = `CASE WHEN transaction_type IN ('transfer_to_fees', 'refund', 'bank_charge')
	THEN -amount ELSE amount END`

type TrustTransactionRepository struct {
	db *sql.DB
}

func NewTrustTransactionRepository(db *sql.DB) *TrustTransactionRepository {
	return &TrustTransactionRepository{db: db}
}

func (r *TrustTransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.TrustTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO trust_transactions (
			id, firm_id, trust_account_id, client_id, matter_id,
			transaction_type, amount, balance_after, related_invoice_id, description,
			transaction_date, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.FirmID, t.TrustAccountID, t.ClientID, t.MatterID,
		t.Type, t.Amount, t.BalanceAfter, t.RelatedInvoiceID, t.Description,
		t.TransactionDate, t.CreatedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ClientBalanceTx sums the signed amounts for one client in one account
// inside the caller's transaction. The non-negative check depends on this
// read happening after the account row lock is held.
func (r *TrustTransactionRepository) ClientBalanceTx(ctx context.Context, tx *sql.Tx, firmID, accountID, clientID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+signedAmount+`), 0) FROM trust_transactions
		WHERE firm_id = $1 AND trust_account_id = $2 AND client_id = $3`,
		firmID, accountID, clientID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ClientBalanceTx: %w", err)
	}
	return balance, nil
}

func (r *TrustTransactionRepository) ClientBalance(ctx context.Context, firmID, accountID, clientID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+signedAmount+`), 0) FROM trust_transactions
		WHERE firm_id = $1 AND trust_account_id = $2 AND client_id = $3`,
		firmID, accountID, clientID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ClientBalance: %w", err)
	}
	return balance, nil
}

// ClientBalanceAllAccounts sums a client's trust funds across every
// account of the firm.
func (r *TrustTransactionRepository) ClientBalanceAllAccounts(ctx context.Context, firmID, clientID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+signedAmount+`), 0) FROM trust_transactions
		WHERE firm_id = $1 AND client_id = $2`,
		firmID, clientID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ClientBalanceAllAccounts: %w", err)
	}
	return balance, nil
}

// AccountBalance is the ledger balance: the signed sum over every
// transaction on the account.
func (r *TrustTransactionRepository) AccountBalance(ctx context.Context, firmID, accountID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+signedAmount+`), 0) FROM trust_transactions
		WHERE firm_id = $1 AND trust_account_id = $2`,
		firmID, accountID,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("AccountBalance: %w", err)
	}
	return balance, nil
}

type ClientBalanceRow struct {
	ClientID uuid.UUID
	Balance  decimal.Decimal
}

// ClientBalancesForAccount returns the per-client sub-ledger balances of
// one account, for reconciliation.
func (r *TrustTransactionRepository) ClientBalancesForAccount(ctx context.Context, firmID, accountID uuid.UUID) ([]ClientBalanceRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT client_id, COALESCE(SUM(`+signedAmount+`), 0) FROM trust_transactions
		WHERE firm_id = $1 AND trust_account_id = $2
		GROUP BY client_id ORDER BY client_id`,
		firmID, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("ClientBalancesForAccount: %w", err)
	}
	defer rows.Close()

	var balances []ClientBalanceRow
	for rows.Next() {
		var b ClientBalanceRow
		if err := rows.Scan(&b.ClientID, &b.Balance); err != nil {
			return nil, fmt.Errorf("ClientBalancesForAccount: scan: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClientBalancesForAccount: rows: %w", err)
	}
	return balances, nil
}

func (r *TrustTransactionRepository) ListByAccount(ctx context.Context, firmID, accountID uuid.UUID, limit, offset int) ([]domain.TrustTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trustTransactionColumns+` FROM trust_transactions
		WHERE firm_id = $1 AND trust_account_id = $2
		ORDER BY seq DESC LIMIT $3 OFFSET $4`,
		firmID, accountID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var txns []domain.TrustTransaction
	for rows.Next() {
		t, err := scanTrustTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return txns, nil
}

// ListByClient returns the client's entries in insertion order, the order
// the balance_after chain is defined over.
func (r *TrustTransactionRepository) ListByClient(ctx context.Context, firmID, accountID, clientID uuid.UUID) ([]domain.TrustTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trustTransactionColumns+` FROM trust_transactions
		WHERE firm_id = $1 AND trust_account_id = $2 AND client_id = $3
		ORDER BY seq`,
		firmID, accountID, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByClient: %w", err)
	}
	defer rows.Close()

	var txns []domain.TrustTransaction
	for rows.Next() {
		t, err := scanTrustTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByClient: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByClient: rows: %w", err)
	}
	return txns, nil
}

func scanTrustTransaction(s scanner) (*domain.TrustTransaction, error) {
	var t domain.TrustTransaction
	err := s.Scan(
		&t.ID, &t.FirmID, &t.TrustAccountID, &t.ClientID, &t.MatterID,
		&t.Type, &t.Amount, &t.BalanceAfter, &t.RelatedInvoiceID, &t.Description,
		&t.TransactionDate, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
