package core

import (
	"github.com/shopspring/decimal"
)

// Net returns debit minus credit rounded to two decimals, the "Totals"
// figure of the expense pivot.
func Net(debit, credit decimal.Decimal) decimal.Decimal {
	return debit.Sub(credit).Round(2)
}

// Net of a debit/credit pair.
func (t Totals) Net() decimal.Decimal { return Net(t.Debit, t.Credit) }

// Sum adds amounts; the sum of nothing is zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
