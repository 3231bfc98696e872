package oddsmath

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american int64
		want     string
	}{
		{"even +100", 100, "2"},
		{"underdog +150", 150, "2.5"},
		{"favorite -200", -200, "1.5"},
		{"favorite -110", -110, "1.9091"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmericanToDecimal(tt.american)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Round(4).String())
		})
	}

	_, err := AmericanToDecimal(50)
	assert.ErrorIs(t, err, ErrInvalidAmericanOdds)
}

func TestDecimalToAmerican(t *testing.T) {
	tests := []struct {
		price string
		want  int64
	}{
		{"2", 100},
		{"2.5", 150},
		{"1.5", -200},
		{"1.91", -110},
		{"1.85", -118},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got, err := DecimalToAmerican(decimal.RequireFromString(tt.price))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DecimalToAmerican(decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidDecimalOdds)
}

func TestImpliedProbability(t *testing.T) {
	got, err := ImpliedProbability(decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, "0.4", got.String())

	got, err = ImpliedProbability(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "0.6667", got.String())
}

func TestProbabilityToDecimal(t *testing.T) {
	got, err := ProbabilityToDecimal(decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(4)))

	_, err = ProbabilityToDecimal(decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidProbability)
}

func TestOverround(t *testing.T) {
	got, err := Overround(decimal.RequireFromString("1.91"), decimal.RequireFromString("1.91"))
	require.NoError(t, err)
	assert.Equal(t, "1.0472", got.String())
}

func TestProbabilityShift(t *testing.T) {
	got, err := ProbabilityShift(decimal.RequireFromString("2.5"), decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "0.1", got.String())
}
