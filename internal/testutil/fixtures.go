package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/domain"
)

var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func SeedFirm(t *testing.T, db *sql.DB, name, province string) *domain.Firm {
	t.Helper()

	f := &domain.Firm{
		ID:        uuid.New(),
		Name:      name,
		Province:  province,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO firms (id, name, province, created_at) VALUES ($1, $2, $3, $4)`,
		f.ID, f.Name, f.Province, f.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed firm %s: %v", name, err)
	}
	return f
}

func SeedClient(t *testing.T, db *sql.DB, firmID uuid.UUID, displayName string) *domain.Client {
	t.Helper()

	c := &domain.Client{
		ID:          uuid.New(),
		FirmID:      firmID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO clients (id, firm_id, display_name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.FirmID, c.DisplayName, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed client %s: %v", displayName, err)
	}
	return c
}

func SeedMatter(t *testing.T, db *sql.DB, firmID, clientID uuid.UUID, title string) *domain.Matter {
	t.Helper()

	m := &domain.Matter{
		ID:        uuid.New(),
		FirmID:    firmID,
		ClientID:  clientID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO matters (id, firm_id, client_id, title, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.FirmID, m.ClientID, m.Title, m.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed matter %s: %v", title, err)
	}
	return m
}

func SeedTimeEntry(t *testing.T, db *sql.DB, firmID, clientID uuid.UUID, staffName string, hours, rate decimal.Decimal) *domain.TimeEntry {
	t.Helper()

	e := &domain.TimeEntry{
		ID:          uuid.New(),
		FirmID:      firmID,
		ClientID:    clientID,
		UserID:      SystemUserID,
		StaffName:   staffName,
		WorkDate:    time.Now().UTC(),
		Hours:       hours,
		HourlyRate:  rate,
		Description: "legal work",
		Billable:    true,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO time_entries (id, firm_id, client_id, user_id, staff_name, work_date, hours, hourly_rate, description, billable, billed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.FirmID, e.ClientID, e.UserID, e.StaffName, e.WorkDate, e.Hours, e.HourlyRate, e.Description, e.Billable, e.Billed, e.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed time entry: %v", err)
	}
	return e
}

func SeedExpense(t *testing.T, db *sql.DB, firmID, clientID uuid.UUID, amount decimal.Decimal, treatment domain.TaxTreatment) *domain.Expense {
	t.Helper()

	e := &domain.Expense{
		ID:           uuid.New(),
		FirmID:       firmID,
		ClientID:     clientID,
		ExpenseDate:  time.Now().UTC(),
		Description:  "courier",
		Amount:       amount,
		TaxTreatment: treatment,
		Billable:     true,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO expenses (id, firm_id, client_id, expense_date, description, amount, tax_treatment, billable, billed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.FirmID, e.ClientID, e.ExpenseDate, e.Description, e.Amount, e.TaxTreatment, e.Billable, e.Billed, e.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return e
}

func SeedTrustAccount(t *testing.T, db *sql.DB, firmID uuid.UUID, name string) *domain.TrustAccount {
	t.Helper()

	a := &domain.TrustAccount{
		ID:             uuid.New(),
		FirmID:         firmID,
		AccountName:    name,
		Currency:       "CAD",
		CurrentBalance: decimal.Zero,
		CreatedAt:      time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO trust_accounts (id, firm_id, account_name, currency, current_balance, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.FirmID, a.AccountName, a.Currency, a.CurrentBalance, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed trust account %s: %v", name, err)
	}
	return a
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT current_balance FROM trust_accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

func CountTrustTransactions(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM trust_transactions WHERE trust_account_id = $1`, accountID).Scan(&count)
	if err != nil {
		t.Fatalf("count trust transactions for account %s: %v", accountID, err)
	}
	return count
}
