// Package oddsmath converts between odds formats. Prices are kept as
// shopspring decimals, matching how offers are stored.
package oddsmath

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmericanOdds = errors.New("american odds cannot be between -100 and 100")
	ErrInvalidDecimalOdds  = errors.New("decimal odds must be greater than 1")
	ErrInvalidProbability  = errors.New("probability must be between 0 and 1")
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// probabilityPrecision is the number of decimal places kept for probabilities.
const probabilityPrecision = 4

// AmericanToDecimal converts American odds, +150 -> 2.5 and -150 -> 1.6667.
func AmericanToDecimal(american int64) (decimal.Decimal, error) {
	if american > -100 && american < 100 {
		return decimal.Zero, ErrInvalidAmericanOdds
	}

	a := decimal.NewFromInt(american)
	if american > 0 {
		return a.Div(hundred).Add(one), nil
	}

	return hundred.Div(a.Neg()).Add(one), nil
}

// DecimalToAmerican converts decimal odds, rounding to the nearest whole line.
func DecimalToAmerican(price decimal.Decimal) (int64, error) {
	if price.LessThanOrEqual(one) {
		return 0, ErrInvalidDecimalOdds
	}

	if price.GreaterThanOrEqual(two) {
		return price.Sub(one).Mul(hundred).Round(0).IntPart(), nil
	}

	return hundred.Neg().Div(price.Sub(one)).Round(0).IntPart(), nil
}

func ImpliedProbability(price decimal.Decimal) (decimal.Decimal, error) {
	if price.LessThanOrEqual(one) {
		return decimal.Zero, ErrInvalidDecimalOdds
	}

	return one.Div(price).Round(probabilityPrecision), nil
}

func ProbabilityToDecimal(probability decimal.Decimal) (decimal.Decimal, error) {
	if probability.LessThanOrEqual(decimal.Zero) || probability.GreaterThanOrEqual(one) {
		return decimal.Zero, ErrInvalidProbability
	}

	return one.Div(probability), nil
}

// Overround sums the implied probabilities of every outcome of one market.
// A value above 1 is the bookmaker margin.
func Overround(prices ...decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, price := range prices {
		p, err := ImpliedProbability(price)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(p)
	}

	return total, nil
}

// ProbabilityShift returns how much the implied probability moved between two
// prices. A positive value means the outcome became more likely.
func ProbabilityShift(previous, current decimal.Decimal) (decimal.Decimal, error) {
	prev, err := ImpliedProbability(previous)
	if err != nil {
		return decimal.Zero, err
	}

	curr, err := ImpliedProbability(current)
	if err != nil {
		return decimal.Zero, err
	}

	return curr.Sub(prev), nil
}
