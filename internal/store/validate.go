package store

import (
	"fmt"
	"strings"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// ValidateTransactions checks every record before it is written:
//  1. the content hash matches its date, description and amount
//  2. the amount is non-negative with at most 2 decimal places
//  3. the kind is Debit or Credit
//  4. the description and value date are set
func ValidateTransactions(txns []model.Transaction) []model.ValidationError {
	var errs []model.ValidationError
	for _, t := range txns {
		fail := func(format string, args ...any) {
			errs = append(errs, model.ValidationError{Hash: t.ContentHash, Description: fmt.Sprintf(format, args...)})
		}

		if want := t.Hash(); t.ContentHash != want {
			fail("content hash does not match record (want %s)", want)
		}
		if t.Amount.IsNegative() {
			fail("amount %s is negative", t.Amount)
		}
		if !t.Amount.Equal(t.Amount.Round(2)) {
			fail("amount %s has more than 2 decimal places", t.Amount)
		}
		if !t.Kind.Valid() {
			fail("unknown kind %q", t.Kind)
		}
		if strings.TrimSpace(t.Description) == "" {
			fail("empty description")
		}
		if t.ValueDate.IsZero() {
			fail("missing value date")
		}
	}
	return errs
}

func joinValidation(errs []model.ValidationError) error {
	msgs := make([]string, len(errs))
	for i, ve := range errs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
