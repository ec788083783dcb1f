package gormstore

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// isUniqueConstraintViolation recognises duplicate keys from either driver,
// with or without GORM's error translation enabled.
func isUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "unique constraint failed") || // SQLite
		strings.Contains(errMsg, "duplicate key") || // PostgreSQL
		strings.Contains(errMsg, "23505") // PostgreSQL unique_violation error code
}

// isCheckConstraintViolation recognises a rejected CHECK, e.g. a rating outside 0-5.
func isCheckConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "check constraint failed") || // SQLite
		strings.Contains(errMsg, "violates check constraint") || // PostgreSQL
		strings.Contains(errMsg, "23514") // PostgreSQL check_violation error code
}
