package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundCents(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already two places", "65.00", "65"},
		{"half rounds up", "9.975", "9.98"},
		{"below half rounds down", "9.974", "9.97"},
		{"above half rounds up", "9.976", "9.98"},
		{"long tail", "114.97500", "114.98"},
		{"zero", "0", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RoundCents(MustParse(tc.in))
			assert.True(t, got.Equal(MustParse(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestParse(t *testing.T) {
	d, err := Parse("1234.56")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.New(123456, -2)))

	_, err = Parse("not-a-number")
	require.Error(t, err)
}

func TestSignHelpers(t *testing.T) {
	assert.True(t, IsPositive(MustParse("0.01")))
	assert.False(t, IsPositive(decimal.Zero))
	assert.True(t, IsNegative(MustParse("-0.01")))
	assert.False(t, IsNegative(decimal.Zero))
}
