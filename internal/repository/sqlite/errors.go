package sqlite

import (
	"database/sql"
	"errors"
	"strings"
)

// isUniqueViolation checks if an error is a unique or primary key violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
