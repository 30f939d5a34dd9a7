// Package tax implements Canadian sales tax lookup and computation.
//
// Each province falls under exactly one regime: HST-only (ON, NB, NL, NS,
// PE), GST+PST (BC, MB, SK), GST+QST (QC), or GST-only (AB, NT, NU, YT).
package tax

import (
	"fmt"
	"strings"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/money"
	"github.com/shopspring/decimal"
)

type Rates struct {
	GST decimal.Decimal
	PST decimal.Decimal
	HST decimal.Decimal
	QST decimal.Decimal
}

type Breakdown struct {
	GST decimal.Decimal
	PST decimal.Decimal
	HST decimal.Decimal
	QST decimal.Decimal
}

var gst = decimal.RequireFromString("0.05")

var rateTable = map[string]Rates{
	"ON": {HST: decimal.RequireFromString("0.13")},
	"NB": {HST: decimal.RequireFromString("0.15")},
	"NL": {HST: decimal.RequireFromString("0.15")},
	"NS": {HST: decimal.RequireFromString("0.15")},
	"PE": {HST: decimal.RequireFromString("0.15")},

	"BC": {GST: gst, PST: decimal.RequireFromString("0.07")},
	"MB": {GST: gst, PST: decimal.RequireFromString("0.07")},
	"SK": {GST: gst, PST: decimal.RequireFromString("0.06")},

	"QC": {GST: gst, QST: decimal.RequireFromString("0.09975")},

	"AB": {GST: gst},
	"NT": {GST: gst},
	"NU": {GST: gst},
	"YT": {GST: gst},
}

// RatesFor returns the rate set for a two-letter province code.
func RatesFor(province string) (Rates, error) {
	r, ok := rateTable[strings.ToUpper(strings.TrimSpace(province))]
	if !ok {
		return Rates{}, fmt.Errorf("RatesFor: %q: %w", province, domain.ErrUnsupportedProvince)
	}
	return r, nil
}

// IsSupported reports whether the province code has an entry in the table.
func IsSupported(province string) bool {
	_, ok := rateTable[strings.ToUpper(strings.TrimSpace(province))]
	return ok
}

// Compute applies the rates to the taxable subtotal. Each component is
// rounded to cents independently.
func Compute(taxableSubtotal decimal.Decimal, r Rates) Breakdown {
	return Breakdown{
		GST: money.RoundCents(taxableSubtotal.Mul(r.GST)),
		PST: money.RoundCents(taxableSubtotal.Mul(r.PST)),
		HST: money.RoundCents(taxableSubtotal.Mul(r.HST)),
		QST: money.RoundCents(taxableSubtotal.Mul(r.QST)),
	}
}

// Total is the sum of all components of the breakdown.
func (b Breakdown) Total() decimal.Decimal {
	return b.GST.Add(b.PST).Add(b.HST).Add(b.QST)
}
