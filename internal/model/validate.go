package model

import (
	"fmt"

	"github.com/fintrack-dev/fintrack/internal/id"
)

// ValidationError describes a record that cannot be persisted.
type ValidationError struct {
	Hash        string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid transaction [%s]: %s", id.ShortHash(e.Hash), e.Description)
}
