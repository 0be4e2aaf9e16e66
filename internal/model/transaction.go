package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/id"
)

// Uncategorized is the category assigned when no keyword matches.
const Uncategorized = "Uncategorized"

// Kind is the direction of a transaction, derived from its original sign.
type Kind string

const (
	KindDebit  Kind = "Debit"
	KindCredit Kind = "Credit"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindDebit || k == KindCredit
}

// KindOf classifies a signed amount: strictly negative is a debit.
func KindOf(signed decimal.Decimal) Kind {
	if signed.IsNegative() {
		return KindDebit
	}
	return KindCredit
}

// Transaction is one bank statement line as persisted by the store.
type Transaction struct {
	ID             int64
	ValueDate      time.Time
	Description    string          // verbatim from the bank
	Amount         decimal.Decimal // always >= 0, direction lives in Kind
	Kind           Kind
	Category       string
	ContentHash    string
	UploadedAt     time.Time
	LastModifiedAt time.Time
}

// NewTransaction builds an uncategorized transaction from a signed amount,
// rounded to cents.
func NewTransaction(valueDate time.Time, description string, signed decimal.Decimal) Transaction {
	t := Transaction{
		ValueDate:   valueDate,
		Description: description,
		Amount:      signed.Abs().Round(2),
		Kind:        KindOf(signed),
		Category:    Uncategorized,
	}
	t.ContentHash = t.Hash()
	return t
}

// Hash recomputes the content hash from date, description and amount.
func (t Transaction) Hash() string {
	return id.ContentHash(t.ValueDate, t.Description, t.Amount)
}

// Signed returns the amount with its sign restored from Kind.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == KindDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Month returns the "YYYY-MM" period of the value date.
func (t Transaction) Month() string {
	return t.ValueDate.Format("2006-01")
}
