// Package money provides the decimal arithmetic used for every amount in the
// planning engine.
//
// Invariants:
//   - Amounts are github.com/shopspring/decimal values rounded to Scale places
//     (the currency minor unit). Only one currency exists.
//   - Splitting an amount never loses or creates money: the parts always sum
//     to the (rounded) total exactly.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for stored amounts.
const Scale int32 = 2

var (
	// ErrNoWeights is returned when a split has no positive weight to divide by.
	ErrNoWeights = errors.New("split requires at least one positive weight")

	// ErrNegativeWeight is returned when a split weight is negative.
	ErrNegativeWeight = errors.New("split weights must not be negative")
)

// Tolerance is the aggregate drift allowed between a total and the sum of its
// parts (one currency unit).
var Tolerance = decimal.NewFromInt(1)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round rounds d to Scale places (half away from zero).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// FromFloat converts a float to a rounded amount.
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

// FromInt converts a whole number of currency units to an amount.
func FromInt(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

// Sum adds all amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// WithinTolerance reports whether a and b differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Split distributes total across weights pro rata. Each share is rounded to
// Scale places and the rounding remainder goes to the highest-weight entry
// (the earliest one on ties), so the shares always sum to Round(total).
func Split(total decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, ErrNoWeights
	}
	sumW := decimal.Zero
	top := 0
	for i, w := range weights {
		if w.IsNegative() {
			return nil, ErrNegativeWeight
		}
		sumW = sumW.Add(w)
		if w.GreaterThan(weights[top]) {
			top = i
		}
	}
	if !sumW.IsPositive() {
		return nil, ErrNoWeights
	}

	total = Round(total)
	shares := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		shares[i] = Round(total.Mul(w).Div(sumW))
		allocated = allocated.Add(shares[i])
	}
	shares[top] = shares[top].Add(total.Sub(allocated))
	return shares, nil
}

// SplitEqual distributes total across n equal parts; the remainder goes to
// the first part.
func SplitEqual(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return Split(total, weights)
}
