package repository

import (
	"errors"
	"strings"

	"warbler/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// translateWriteError maps unique-index hits to DuplicateCredential and wraps
// everything else as an internal error.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if field, ok := uniqueViolation(err); ok {
		return models.NewDuplicateCredentialError(field)
	}
	return models.NewInternalError(err)
}

// uniqueViolation reports whether err is a unique constraint failure and which
// user field it hit, if that can be told.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return credentialField(pgErr.ConstraintName + " " + pgErr.Detail), true
	}

	// SQLite: "UNIQUE constraint failed: users.username"
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, pgUniqueViolation) {
		return credentialField(msg), true
	}
	return "", false
}

func credentialField(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "username"):
		return "username"
	case strings.Contains(s, "email"):
		return "email"
	default:
		return ""
	}
}
