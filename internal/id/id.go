package id

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateFormat is the ISO calendar date used in hashes and storage.
const DateFormat = "2006-01-02"

// HashKey returns the normalized string a transaction hash is computed over:
// "YYYY-MM-DD|<trimmed description>|<unsigned amount, 2 decimals>".
func HashKey(valueDate time.Time, description string, amount decimal.Decimal) string {
	return fmt.Sprintf("%s|%s|%s",
		valueDate.Format(DateFormat),
		strings.TrimSpace(description),
		amount.Abs().StringFixed(2),
	)
}

// ContentHash returns the lowercase hex SHA-256 of HashKey.
// Kind and category do not participate.
func ContentHash(valueDate time.Time, description string, amount decimal.Decimal) string {
	sum := sha256.Sum256([]byte(HashKey(valueDate, description, amount)))
	return hex.EncodeToString(sum[:])
}

// NewBatchID returns a fresh identifier for one import run.
func NewBatchID() string {
	return uuid.NewString()
}

// ShortHash returns the first 12 characters of a content hash for display.
func ShortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
