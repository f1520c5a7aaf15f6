package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthOverview bundles the report views of one month.
type MonthOverview struct {
	Period      Period
	Accounts    []AccountSummary
	Expenses    []ExpenseSummary
	Categorised CategorisedExpenseSummary
}

// InfoCard is one headline figure of a credit-card statement.
type InfoCard struct {
	Label  string
	Amount decimal.Decimal
}

// InfoCards returns the statement headline figures in display order. The
// API reports the opening balance as owed-negative; it is shown flipped.
func (s CreditCardSummary) InfoCards() []InfoCard {
	return []InfoCard{
		{Label: "Opening Balance", Amount: s.OpeningBalance.Neg()},
		{Label: "Credits and Reversal", Amount: s.CreditsAndReversals},
		{Label: "Total Expense", Amount: s.TotalExpense()},
		{Label: "Total Due", Amount: s.TotalBill},
	}
}

// TotalExpense is EMIs plus taxes plus expenses.
func (s CreditCardSummary) TotalExpense() decimal.Decimal {
	return Sum(s.EMIAmounts, s.TotalTax, s.ExpenseAmounts)
}

// CategoryBreakdown sums debit amounts per category in first-seen order.
// Uncategorised transactions are skipped.
func CategoryBreakdown(txns []Transaction) []CategoryAmount {
	return breakdown(txns, func(t Transaction) *string { return t.Category })
}

// SubCategoryBreakdown is CategoryBreakdown keyed by sub-category.
func SubCategoryBreakdown(txns []Transaction) []CategoryAmount {
	return breakdown(txns, func(t Transaction) *string { return t.SubCategory })
}

func breakdown(txns []Transaction, key func(Transaction) *string) []CategoryAmount {
	var out []CategoryAmount
	index := make(map[string]int)
	for _, t := range txns {
		name := key(t)
		if name == nil || *name == "" {
			continue
		}
		i, ok := index[*name]
		if !ok {
			i = len(out)
			index[*name] = i
			out = append(out, CategoryAmount{Name: *name})
		}
		out[i].Amount = out[i].Amount.Add(t.DebitAmount)
	}
	return out
}
