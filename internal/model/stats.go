package model

import "time"

// CategoryCount is the number of stored transactions in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DateRange spans the earliest and latest stored value dates.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Statistics is an aggregate view over the transaction store.
type Statistics struct {
	TotalCount     int             `json:"total_count"`
	CategoryCounts []CategoryCount `json:"category_counts"`
	DateRange      *DateRange      `json:"date_range,omitempty"` // nil when the store is empty
}

// CountFor returns the count for a category, or 0.
func (s Statistics) CountFor(category string) int {
	for _, c := range s.CategoryCounts {
		if c.Category == category {
			return c.Count
		}
	}
	return 0
}
