package categories

import "github.com/fintrack-dev/fintrack/internal/model"

// Default returns the first-run registry: a single empty Uncategorized entry.
func Default() []Category {
	return []Category{{Name: model.Uncategorized, Keywords: []string{}}}
}
