package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var allowedSortColumns = map[string]bool{
	"created_at":   true,
	"enrolled_at":  true,
	"requested_at": true,
	"progress":     true,
	"status":       true,
}

// applyPaginationAndSort applies limit/offset and a whitelisted ORDER BY.
func applyPaginationAndSort(query *gorm.DB, limit, offset int, sortBy, sortOrder, defaultSort string) *gorm.DB {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	order := defaultSort
	if allowedSortColumns[sortBy] {
		direction := "desc"
		if strings.EqualFold(sortOrder, "asc") {
			direction = "asc"
		}
		order = fmt.Sprintf("%s %s", sortBy, direction)
	}

	return query.Order(order).Limit(limit).Offset(offset)
}
