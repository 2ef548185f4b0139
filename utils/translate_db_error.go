package utils

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// TranslateDBError maps database errors to messages safe to return to a
// client. Anything unrecognized stays generic; the raw error is for the
// server log only.
func TranslateDBError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "Record not found"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique violation
			if strings.Contains(pgErr.ConstraintName, "email") {
				return "Email already exists"
			}
			return "Duplicate value, please use another"
		case "23503": // foreign key violation
			return "This record is referenced by another table"
		case "23502": // not null violation
			return "Some required fields are missing"
		case "22P02": // invalid text representation
			return "Invalid data format"
		}
	}

	return "Internal server error"
}
