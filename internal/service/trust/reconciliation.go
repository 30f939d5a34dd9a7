package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/money"
)

type ClientBalance struct {
	ClientID uuid.UUID
	Balance  decimal.Decimal
}

// Reconciliation compares the bank statement balance, the internal ledger
// balance and the sum of per-client sub-ledger balances for one trust
// account. Ledger and client totals are derived from the same rows, so a
// mismatch between those two indicates a ledger defect, not a business
// condition.
type Reconciliation struct {
	AccountID          uuid.UUID
	BankBalance        decimal.Decimal
	LedgerBalance      decimal.Decimal
	ClientTotalBalance decimal.Decimal
	IsBalanced         bool
	Difference         decimal.Decimal
	ClientBalances     []ClientBalance
	PreparedAt         time.Time
}

// ThreeWayReconciliation is read-only; it never mutates ledger state.
func (s *Service) ThreeWayReconciliation(ctx context.Context, firmID, accountID uuid.UUID, bankBalance decimal.Decimal) (*Reconciliation, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ThreeWayReconciliation: %w", err)
	}
	if account.FirmID != firmID {
		return nil, fmt.Errorf("ThreeWayReconciliation: %w", domain.ErrNotFound)
	}

	ledger, err := s.txns.AccountBalance(ctx, firmID, accountID)
	if err != nil {
		return nil, fmt.Errorf("ThreeWayReconciliation: %w", err)
	}

	rows, err := s.txns.ClientBalancesForAccount(ctx, firmID, accountID)
	if err != nil {
		return nil, fmt.Errorf("ThreeWayReconciliation: %w", err)
	}

	clientTotal := decimal.Zero
	clientBalances := make([]ClientBalance, 0, len(rows))
	for _, row := range rows {
		clientTotal = clientTotal.Add(row.Balance)
		clientBalances = append(clientBalances, ClientBalance{ClientID: row.ClientID, Balance: row.Balance})
	}

	bank := money.RoundCents(bankBalance)
	ledger = money.RoundCents(ledger)
	clientTotal = money.RoundCents(clientTotal)

	balanced := bank.Equal(ledger) && ledger.Equal(clientTotal)
	difference := decimal.Zero
	if !balanced {
		difference = maxPairwiseDifference(bank, ledger, clientTotal)
	}

	return &Reconciliation{
		AccountID:          accountID,
		BankBalance:        bank,
		LedgerBalance:      ledger,
		ClientTotalBalance: clientTotal,
		IsBalanced:         balanced,
		Difference:         difference,
		ClientBalances:     clientBalances,
		PreparedAt:         time.Now().UTC(),
	}, nil
}

func maxPairwiseDifference(values ...decimal.Decimal) decimal.Decimal {
	max := decimal.Zero
	for i := range values {
		for j := i + 1; j < len(values); j++ {
			d := values[i].Sub(values[j]).Abs()
			if d.GreaterThan(max) {
				max = d
			}
		}
	}
	return max
}
