package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// uniqueViolation is the postgres error code for unique constraint violations
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// sortableColumns is the allow-list for ORDER BY injection safety
var sortableColumns = map[string]bool{
	"created_at":           true,
	"updated_at":           true,
	"recorded_at":          true,
	"current_period_start": true,
	"current_period_end":   true,
}

func sanitizeSortColumn(sort string) string {
	if sortableColumns[sort] {
		return sort
	}
	return "created_at"
}

func sanitizeOrder(order string) string {
	if order == types.OrderAsc {
		return "ASC"
	}
	return "DESC"
}
