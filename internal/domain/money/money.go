// Package money holds the balance arithmetic for loans. All values are
// decimal.Decimal so that owed and repaid totals compare exactly.
package money

import "github.com/shopspring/decimal"

// Epsilon is the tolerance under which a loan counts as fully repaid.
var Epsilon = decimal.New(1, -6)

var hundred = decimal.NewFromInt(100)

// TotalOwed returns principal + principal*markupPct/100.
func TotalOwed(principal, markupPct decimal.Decimal) decimal.Decimal {
	return principal.Add(principal.Mul(markupPct).Div(hundred))
}

// Remaining returns totalOwed - totalRepaid floored at zero.
func Remaining(totalOwed, totalRepaid decimal.Decimal) decimal.Decimal {
	r := totalOwed.Sub(totalRepaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func IsOutstanding(totalOwed, totalRepaid decimal.Decimal) bool {
	return totalOwed.Sub(totalRepaid).GreaterThan(Epsilon)
}

// Sum adds amounts; an empty slice sums to zero.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
