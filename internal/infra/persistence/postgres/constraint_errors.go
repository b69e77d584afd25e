package postgres

import (
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes for integrity violations.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateNotNullViolation    = "23502"
	sqlStateCheckViolation      = "23514"
)

var sqlStatePattern = regexp.MustCompile(`\(SQLSTATE (\w{5})\)`)

// sqlState extracts the SQLSTATE of err, from the driver error when present and
// from the rendered message otherwise.
func sqlState(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	if m := sqlStatePattern.FindStringSubmatch(err.Error()); m != nil {
		return m[1]
	}

	return ""
}

// GORM translates some violations itself when TranslateError is on.
func isUniqueConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || sqlState(err) == sqlStateUniqueViolation
}

func isForeignKeyConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || sqlState(err) == sqlStateForeignKeyViolation
}

func isCheckConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrCheckConstraintViolated) || sqlState(err) == sqlStateCheckViolation
}

func isNotNullConstraintViolation(err error) bool {
	return sqlState(err) == sqlStateNotNullViolation
}
