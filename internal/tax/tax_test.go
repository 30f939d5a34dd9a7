package tax

import (
	"testing"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		province string
		taxable  string
		wantGST  string
		wantPST  string
		wantHST  string
		wantQST  string
	}{
		{name: "ontario HST", province: "ON", taxable: "500.00", wantGST: "0", wantPST: "0", wantHST: "65.00", wantQST: "0"},
		{name: "quebec GST+QST", province: "QC", taxable: "100.00", wantGST: "5.00", wantPST: "0", wantHST: "0", wantQST: "9.98"},
		{name: "bc GST+PST", province: "BC", taxable: "200.00", wantGST: "10.00", wantPST: "14.00", wantHST: "0", wantQST: "0"},
		{name: "saskatchewan PST at 6", province: "SK", taxable: "100.00", wantGST: "5.00", wantPST: "6.00", wantHST: "0", wantQST: "0"},
		{name: "alberta GST only", province: "AB", taxable: "100.00", wantGST: "5.00", wantPST: "0", wantHST: "0", wantQST: "0"},
		{name: "nova scotia HST 15", province: "NS", taxable: "100.00", wantGST: "0", wantPST: "0", wantHST: "15.00", wantQST: "0"},
		{name: "lowercase code accepted", province: "on", taxable: "100.00", wantGST: "0", wantPST: "0", wantHST: "13.00", wantQST: "0"},
		{name: "zero taxable", province: "ON", taxable: "0", wantGST: "0", wantPST: "0", wantHST: "0", wantQST: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := RatesFor(tc.province)
			require.NoError(t, err)

			b := Compute(money.MustParse(tc.taxable), r)
			assert.True(t, b.GST.Equal(money.MustParse(tc.wantGST)), "gst: got %s", b.GST)
			assert.True(t, b.PST.Equal(money.MustParse(tc.wantPST)), "pst: got %s", b.PST)
			assert.True(t, b.HST.Equal(money.MustParse(tc.wantHST)), "hst: got %s", b.HST)
			assert.True(t, b.QST.Equal(money.MustParse(tc.wantQST)), "qst: got %s", b.QST)
		})
	}
}

func TestRatesForUnsupported(t *testing.T) {
	for _, code := range []string{"XX", "", "CA", "ONT"} {
		_, err := RatesFor(code)
		require.ErrorIs(t, err, domain.ErrUnsupportedProvince, "code %q", code)
	}
}

func TestBreakdownTotal(t *testing.T) {
	r, err := RatesFor("QC")
	require.NoError(t, err)

	b := Compute(money.MustParse("100.00"), r)
	assert.True(t, b.Total().Equal(money.MustParse("14.98")), "got %s", b.Total())
}
