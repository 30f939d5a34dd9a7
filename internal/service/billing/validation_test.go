package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/tax"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckBillableSource(t *testing.T) {
	clientA := uuid.New()
	clientB := uuid.New()

	tests := []struct {
		name          string
		entryClientID uuid.UUID
		billable      bool
		billed        bool
		wantErr       error
	}{
		{name: "billable unbilled entry", entryClientID: clientA, billable: true},
		{name: "different client", entryClientID: clientB, billable: true, wantErr: domain.ErrInvalidState},
		{name: "non-billable entry", entryClientID: clientA, billable: false, wantErr: domain.ErrEntryNotBillable},
		{name: "already billed entry", entryClientID: clientA, billable: true, billed: true, wantErr: domain.ErrEntryAlreadyBilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBillableSource(tt.entryClientID, clientA, tt.billable, tt.billed)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestResolveProvince(t *testing.T) {
	tests := []struct {
		name     string
		override string
		firm     string
		fallback string
		want     string
	}{
		{name: "override wins", override: "BC", firm: "ON", fallback: "AB", want: "BC"},
		{name: "firm province when no override", firm: "QC", fallback: "ON", want: "QC"},
		{name: "fallback when nothing set", fallback: "ON", want: "ON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveProvince(tt.override, tt.firm, tt.fallback))
		})
	}
}

func TestApplyTotals_OntarioHST(t *testing.T) {
	rates, err := tax.RatesFor("ON")
	require.NoError(t, err)

	inv := &domain.Invoice{
		AmountPaid: decimal.Zero,
		LineItems: []domain.InvoiceLineItem{
			{Amount: dec("500.00"), Taxable: true},
		},
	}
	applyTotals(inv, rates)

	assert.True(t, inv.Subtotal.Equal(dec("500.00")))
	assert.True(t, inv.TaxHST.Equal(dec("65.00")))
	assert.True(t, inv.TaxGST.IsZero())
	assert.True(t, inv.TaxPST.IsZero())
	assert.True(t, inv.TaxQST.IsZero())
	assert.True(t, inv.Total.Equal(dec("565.00")))
	assert.True(t, inv.BalanceDue.Equal(dec("565.00")))
}

func TestApplyTotals_QuebecGSTAndQST(t *testing.T) {
	rates, err := tax.RatesFor("QC")
	require.NoError(t, err)

	inv := &domain.Invoice{
		AmountPaid: decimal.Zero,
		LineItems: []domain.InvoiceLineItem{
			{Amount: dec("100.00"), Taxable: true},
		},
	}
	applyTotals(inv, rates)

	assert.True(t, inv.TaxGST.Equal(dec("5.00")))
	assert.True(t, inv.TaxQST.Equal(dec("9.98")), "QST 9.975%% of 100 rounds to 9.98, got %s", inv.TaxQST)
	assert.True(t, inv.TaxHST.IsZero())
	assert.True(t, inv.Total.Equal(dec("114.98")))
}

func TestApplyTotals_NonTaxableLinesExcluded(t *testing.T) {
	rates, err := tax.RatesFor("ON")
	require.NoError(t, err)

	inv := &domain.Invoice{
		AmountPaid: decimal.Zero,
		LineItems: []domain.InvoiceLineItem{
			{Amount: dec("1000.00"), Taxable: true},
			{Amount: dec("250.00"), Taxable: false},
		},
	}
	applyTotals(inv, rates)

	assert.True(t, inv.Subtotal.Equal(dec("1250.00")))
	assert.True(t, inv.TaxHST.Equal(dec("130.00")), "tax applies to the taxable base only")
	assert.True(t, inv.Total.Equal(dec("1380.00")))
}

func TestApplyTotals_Idempotent(t *testing.T) {
	rates, err := tax.RatesFor("BC")
	require.NoError(t, err)

	inv := &domain.Invoice{
		AmountPaid: decimal.Zero,
		LineItems: []domain.InvoiceLineItem{
			{Amount: dec("333.33"), Taxable: true},
		},
	}
	applyTotals(inv, rates)
	first := *inv
	applyTotals(inv, rates)

	assert.True(t, inv.Subtotal.Equal(first.Subtotal))
	assert.True(t, inv.TaxGST.Equal(first.TaxGST))
	assert.True(t, inv.TaxPST.Equal(first.TaxPST))
	assert.True(t, inv.Total.Equal(first.Total))
}

func TestApplyTotals_PartialPaymentBalance(t *testing.T) {
	rates, err := tax.RatesFor("ON")
	require.NoError(t, err)

	inv := &domain.Invoice{
		AmountPaid: dec("200.00"),
		LineItems: []domain.InvoiceLineItem{
			{Amount: dec("500.00"), Taxable: true},
		},
	}
	applyTotals(inv, rates)

	assert.True(t, inv.Total.Equal(dec("565.00")))
	assert.True(t, inv.BalanceDue.Equal(dec("365.00")))
}
