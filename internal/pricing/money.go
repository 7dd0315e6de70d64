package pricing

import (
	"math/bits"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// MaxSafeAmount is the largest integer amount accepted from form input.
// Amounts above it cannot round-trip through a browser number.
const MaxSafeAmount Money = 1<<53 - 1

// safeProduct multiplies two non-negative amounts and reports whether the
// product stays within MaxSafeAmount.
func safeProduct(a, b int64) (Money, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > uint64(MaxSafeAmount) {
		return 0, false
	}
	return Money(lo), true
}

var (
	half    = decimal.RequireFromString("0.5")
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// roundMinor rounds half towards positive infinity, matching the rounding the
// checkout form uses when it displays the same figures.
func roundMinor(d decimal.Decimal) Money {
	return d.Add(half).Floor().IntPart()
}

func floorMinor(d decimal.Decimal) Money {
	return d.Floor().IntPart()
}

func minor(m Money) decimal.Decimal {
	return decimal.NewFromInt(m)
}

// rate converts a 0-100 percentage into a fraction.
func rate(percent float64) decimal.Decimal {
	return decimal.NewFromFloat(percent).Div(hundred)
}

// inclusiveTaxOf extracts the tax already embedded in amount at the given
// combined inclusive percentage.
func inclusiveTaxOf(amount Money, percent float64) Money {
	if amount == 0 || percent == 0 {
		return 0
	}
	gross := minor(amount)
	net := gross.Div(one.Add(rate(percent)))
	return roundMinor(gross.Sub(net))
}

// exclusiveTaxOf computes the tax added on top of a taxable amount.
func exclusiveTaxOf(taxable Money, percent float64) Money {
	if taxable == 0 || percent == 0 {
		return 0
	}
	return roundMinor(minor(taxable).Mul(rate(percent)))
}
