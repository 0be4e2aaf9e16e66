package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fintrack-dev/fintrack/internal/model"
)

func TestValidateTransactions_Valid(t *testing.T) {
	assert.Empty(t, ValidateTransactions(sampleBatch()))
}

func TestValidateTransactions_Invalid(t *testing.T) {
	base := txn(date(2025, 1, 3), "COMPRA", "-1.00", "")

	badHash := base
	badHash.ContentHash = "x"

	negative := base
	negative.Amount = decimal.RequireFromString("-1.00")
	negative.ContentHash = negative.Hash()

	precise := base
	precise.Amount = decimal.RequireFromString("1.005")
	precise.ContentHash = precise.Hash()

	badKind := base
	badKind.Kind = "Refund"

	noDate := model.Transaction{Description: "X", Kind: model.KindDebit}
	noDate.ContentHash = noDate.Hash()

	blank := model.NewTransaction(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "   ", decimal.NewFromInt(1))

	tests := []struct {
		name string
		txn  model.Transaction
		want string
	}{
		{"hash", badHash, "content hash"},
		{"negative", negative, "negative"},
		{"precision", precise, "2 decimal places"},
		{"kind", badKind, "unknown kind"},
		{"date", noDate, "missing value date"},
		{"description", blank, "empty description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTransactions([]model.Transaction{tt.txn})
			if assert.NotEmpty(t, errs) {
				assert.Contains(t, errs[0].Error(), tt.want)
			}
		})
	}
}
