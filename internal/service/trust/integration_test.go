package trust_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/events"
	"github.com/mfortin/barbooks/internal/repository"
	"github.com/mfortin/barbooks/internal/service/trust"
	"github.com/mfortin/barbooks/internal/testutil"
)

func setupTrustService(t *testing.T, db *sql.DB) *trust.Service {
	t.Helper()
	return trust.NewService(
		repository.NewFirmRepository(db),
		repository.NewClientRepository(db),
		repository.NewMatterRepository(db),
		repository.NewTrustAccountRepository(db),
		repository.NewTrustTransactionRepository(db),
		db,
		events.Nop{},
	)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecordDeposit_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTrustService(t, db)
	ctx := context.Background()

	firm := testutil.SeedFirm(t, db, "Tremblay & Associés", "QC")
	client := testutil.SeedClient(t, db, firm.ID, "Gagnon Holdings")
	account := testutil.SeedTrustAccount(t, db, firm.ID, "General Trust")

	txn, err := svc.RecordDeposit(ctx, trust.RecordTransactionRequest{
		FirmID:    firm.ID,
		AccountID: account.ID,
		ClientID:  client.ID,
		Amount:    dec("1000.00"),
		Date:      time.Now().UTC(),
		ActorID:   testutil.SystemUserID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeDeposit, txn.Type)
	assert.True(t, txn.Amount.Equal(dec("1000.00")))
	assert.True(t, txn.BalanceAfter.Equal(dec("1000.00")))

	balance, err := svc.GetClientBalance(ctx, firm.ID, account.ID, client.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("1000.00")))

	assert.True(t, testutil.GetAccountBalance(t, db, account.ID).Equal(dec("1000.00")))
}

func TestRecordRefund_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTrustService(t, db)
	ctx := context.Background()

	firm := testutil.SeedFirm(t, db, "Chen Law", "ON")
	client := testutil.SeedClient(t, db, firm.ID, "Ironworks Ltd")
	account := testutil.SeedTrustAccount(t, db, firm.ID, "General Trust")

	_, err := svc.RecordDeposit(ctx, trust.RecordTransactionRequest{
		FirmID:    firm.ID,
		AccountID: account.ID,
		ClientID:  client.ID,
		Amount:    dec("500.00"),
		Date:      time.Now().UTC(),
		ActorID:   testutil.SystemUserID,
	})
	require.NoError(t, err)

	_, err = svc.RecordRefund(ctx, trust.RecordTransactionRequest{
		FirmID:    firm.ID,
		AccountID: account.ID,
		ClientID:  client.ID,
		Amount:    dec("600.00"),
		Date:      time.Now().UTC(),
		ActorID:   testutil.SystemUserID,
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err := svc.GetClientBalance(ctx, firm.ID, account.ID, client.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("500.00")), "failed debit must leave balance untouched")
	assert.Equal(t, 1, testutil.CountTrustTransactions(t, db, account.ID))
}

func TestRecordRefund_PerClientIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTrustService(t, db)
	ctx := context.Background()

	firm := testutil.SeedFirm(t, db, "Chen Law", "ON")
	rich := testutil.SeedClient(t, db, firm.ID, "Rich Client")
	poor := testutil.SeedClient(t, db, firm.ID, "Poor Client")
	account := testutil.SeedTrustAccount(t, db, firm.ID, "General Trust")

	_, err := svc.RecordDeposit(ctx, trust.RecordTransactionRequest{
		FirmID:    firm.ID,
		AccountID: account.ID,
		ClientID:  rich.ID,
		Amount:    dec("5000.00"),
		Date:      time.Now().UTC(),
		ActorID:   testutil.SystemUserID,
	})
	require.NoError(t, err)

	// The account holds 5000, but none of it belongs to this client.
	_, err = svc.RecordRefund(ctx, trust.RecordTransactionRequest{
		FirmID:    firm.ID,
		AccountID: account.ID,
		ClientID:  poor.ID,
		Amount:    dec("100.00"),
		Date:      time.Now().UTC(),
		ActorID:   testutil.SystemUserID,
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestConcurrentDebits_ExactlyOneSucceeds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTrustService(t, db)
	ctx := context.Background()

	firm := testutil.SeedFirm(t, db, "Chen Law", "ON")
	client := testutil.SeedClient(t, db, firm.ID, "Ironworks Ltd")
	account := testutil.SeedTrustAccount(t, db, firm.ID, "General Trust")

	_, err := svc.RecordDeposit(ctx, trust.RecordTransactionRequest{
		FirmID:    firm.ID,
		AccountID: account.ID,
		ClientID:  client.ID,
		Amount:    dec("1000.00"),
		Date:      time.Now().UTC(),
		ActorID:   testutil.SystemUserID,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordRefund(ctx, trust.RecordTransactionRequest{
				FirmID:    firm.ID,
				AccountID: account.ID,
				ClientID:  client.ID,
				Amount:    dec("700.00"),
				Date:      time.Now().UTC(),
				ActorID:   testutil.SystemUserID,
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one debit should succeed")
	assert.Equal(t, 1, failures, "exactly one debit should fail")

	balance, err := svc.GetClientBalance(ctx, firm.ID, account.ID, client.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("300.00")), "balance must be 300, not negative")
}

func TestLedger_BalanceAfterChain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTrustService(t, db)
	ctx := context.Background()

	firm := testutil.SeedFirm(t, db, "Chen Law", "ON")
	client := testutil.SeedClient(t, db, firm.ID, "Ironworks Ltd")
	account := testutil.SeedTrustAccount(t, db, firm.ID, "General Trust")

	steps := []struct {
		record func(context.Context, trust.RecordTransactionRequest) (*domain.TrustTransaction, error)
		amount string
		after  string
	}{
		{svc.RecordDeposit, "1000.00", "1000.00"},
		{svc.RecordInterest, "2.50", "1002.50"},
		{svc.RecordBankCharge, "15.00", "987.50"},
		{svc.RecordRefund, "487.50", "500.00"},
	}

	for _, step := range steps {
		txn, err := step.record(ctx, trust.RecordTransactionRequest{
			FirmID:    firm.ID,
			AccountID: account.ID,
			ClientID:  client.ID,
			Amount:    dec(step.amount),
			Date:      time.Now().UTC(),
			ActorID:   testutil.SystemUserID,
		})
		require.NoError(t, err)
		assert.True(t, txn.BalanceAfter.Equal(dec(step.after)),
			"expected balance %s after %s of %s, got %s", step.after, txn.Type, step.amount, txn.BalanceAfter)
	}

	txns, err := svc.ListAccountTransactions(ctx, firm.ID, account.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 4)
	// Newest first.
	assert.Equal(t, domain.TransactionTypeRefund, txns[0].Type)
	assert.Equal(t, domain.TransactionTypeDeposit, txns[3].Type)
}

func TestThreeWayReconciliation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTrustService(t, db)
	ctx := context.Background()

	firm := testutil.SeedFirm(t, db, "Chen Law", "ON")
	alice := testutil.SeedClient(t, db, firm.ID, "Alice Corp")
	bob := testutil.SeedClient(t, db, firm.ID, "Bob Inc")
	account := testutil.SeedTrustAccount(t, db, firm.ID, "General Trust")

	for _, seed := range []struct {
		client *domain.Client
		amount string
	}{
		{alice, "750.00"},
		{bob, "250.00"},
	} {
		_, err := svc.RecordDeposit(ctx, trust.RecordTransactionRequest{
			FirmID:    firm.ID,
			AccountID: account.ID,
			ClientID:  seed.client.ID,
			Amount:    dec(seed.amount),
			Date:      time.Now().UTC(),
			ActorID:   testutil.SystemUserID,
		})
		require.NoError(t, err)
	}

	report, err := svc.ThreeWayReconciliation(ctx, firm.ID, account.ID, dec("1000.00"))
	require.NoError(t, err)
	assert.True(t, report.IsBalanced)
	assert.True(t, report.LedgerBalance.Equal(dec("1000.00")))
	assert.True(t, report.ClientTotalBalance.Equal(dec("1000.00")))
	assert.True(t, report.Difference.IsZero())
	assert.Len(t, report.ClientBalances, 2)

	// Bank statement disagrees with the ledger.
	report, err = svc.ThreeWayReconciliation(ctx, firm.ID, account.ID, dec("900.00"))
	require.NoError(t, err)
	assert.False(t, report.IsBalanced)
	assert.True(t, report.Difference.Equal(dec("100.00")))
}

func TestTrustOperations_FirmScoping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTrustService(t, db)
	ctx := context.Background()

	firmA := testutil.SeedFirm(t, db, "Firm A", "ON")
	firmB := testutil.SeedFirm(t, db, "Firm B", "BC")
	clientA := testutil.SeedClient(t, db, firmA.ID, "Client of A")
	accountA := testutil.SeedTrustAccount(t, db, firmA.ID, "A Trust")

	_, err := svc.RecordDeposit(ctx, trust.RecordTransactionRequest{
		FirmID:    firmB.ID,
		AccountID: accountA.ID,
		ClientID:  clientA.ID,
		Amount:    dec("100.00"),
		Date:      time.Now().UTC(),
		ActorID:   testutil.SystemUserID,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.ThreeWayReconciliation(ctx, firmB.ID, accountA.ID, dec("0"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}
