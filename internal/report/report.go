// Package report derives the figures shown to the user from stored
// transactions: month filters, income/expense totals, category breakdowns
// and savings trends. Every function is pure.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// Months returns the distinct YYYY-MM periods present, newest first.
func Months(txns []model.Transaction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range txns {
		m := t.Month()
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// FilterMonth keeps transactions in month ("YYYY-MM"). An empty month keeps
// everything.
func FilterMonth(txns []model.Transaction, month string) []model.Transaction {
	if month == "" {
		return txns
	}
	var out []model.Transaction
	for _, t := range txns {
		if t.Month() == month {
			out = append(out, t)
		}
	}
	return out
}

// FilterCategory keeps transactions in category. Empty keeps everything.
func FilterCategory(txns []model.Transaction, category string) []model.Transaction {
	if category == "" {
		return txns
	}
	var out []model.Transaction
	for _, t := range txns {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Search keeps transactions whose description contains term,
// case-insensitively. An empty term keeps everything.
func Search(txns []model.Transaction, term string) []model.Transaction {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return txns
	}
	var out []model.Transaction
	for _, t := range txns {
		if strings.Contains(strings.ToLower(t.Description), term) {
			out = append(out, t)
		}
	}
	return out
}

// Split separates debits from credits, each ordered by value date, newest
// first.
func Split(txns []model.Transaction) (debits, credits []model.Transaction) {
	for _, t := range txns {
		if t.Kind == model.KindDebit {
			debits = append(debits, t)
		} else {
			credits = append(credits, t)
		}
	}
	byDateDesc := func(s []model.Transaction) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].ValueDate.After(s[j].ValueDate) })
	}
	byDateDesc(debits)
	byDateDesc(credits)
	return debits, credits
}

// Summary holds the headline figures for a set of transactions. Expenses
// exclude debits in the savings category, which are reported separately.
type Summary struct {
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Savings      decimal.Decimal `json:"savings"`
	Balance      decimal.Decimal `json:"balance"`
	CreditCount  int             `json:"credit_count"`
	ExpenseCount int             `json:"expense_count"`
	SavingsCount int             `json:"savings_count"`
}

// Summarize computes income, expenses, savings and the balance
// income - (expenses + savings).
func Summarize(txns []model.Transaction, savingsCategory string) Summary {
	s := Summary{Income: decimal.Zero, Expenses: decimal.Zero, Savings: decimal.Zero}
	for _, t := range txns {
		switch {
		case t.Kind == model.KindCredit:
			s.Income = s.Income.Add(t.Amount)
			s.CreditCount++
		case t.Category == savingsCategory:
			s.Savings = s.Savings.Add(t.Amount)
			s.SavingsCount++
		default:
			s.Expenses = s.Expenses.Add(t.Amount)
			s.ExpenseCount++
		}
	}
	s.Balance = s.Income.Sub(s.Expenses.Add(s.Savings))
	return s
}

// CategoryTotal is the spend in one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Breakdown totals debits per category, excluding savings, largest first.
// Credits in txns are ignored.
func Breakdown(txns []model.Transaction, savingsCategory string) []CategoryTotal {
	idx := make(map[string]int)
	var out []CategoryTotal
	for _, t := range txns {
		if t.Kind != model.KindDebit || t.Category == savingsCategory {
			continue
		}
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, CategoryTotal{Category: t.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(t.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// SavingsPoint is one savings debit with the running total up to it.
type SavingsPoint struct {
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

// SavingsTrend returns savings debits oldest first with a cumulative sum.
func SavingsTrend(txns []model.Transaction, savingsCategory string) []SavingsPoint {
	savings := savingsDebits(txns, savingsCategory)
	sort.SliceStable(savings, func(i, j int) bool { return savings[i].ValueDate.Before(savings[j].ValueDate) })

	out := make([]SavingsPoint, 0, len(savings))
	total := decimal.Zero
	for _, t := range savings {
		total = total.Add(t.Amount)
		out = append(out, SavingsPoint{Date: t.ValueDate, Amount: t.Amount, Cumulative: total})
	}
	return out
}

// MonthTotal is an amount for one YYYY-MM period.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// MonthlySavings totals savings debits per month, oldest first.
func MonthlySavings(txns []model.Transaction, savingsCategory string) []MonthTotal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range savingsDebits(txns, savingsCategory) {
		totals[t.Month()] = totals[t.Month()].Add(t.Amount)
	}
	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthTotal, len(months))
	for i, m := range months {
		out[i] = MonthTotal{Month: m, Total: totals[m]}
	}
	return out
}

func savingsDebits(txns []model.Transaction, savingsCategory string) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if t.Kind == model.KindDebit && t.Category == savingsCategory {
			out = append(out, t)
		}
	}
	return out
}
