package warehouse

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mbilalnust/ETL-poor-main-pipeline/internal/refresh"
)

// fatalPgCodes are error conditions that retrying cannot fix: the
// table or column is wrong, or credentials are bad.
var fatalPgCodes = map[string]bool{
	"42P01": true, // undefined_table
	"42703": true, // undefined_column
	"42501": true, // insufficient_privilege
	"23502": true, // not_null_violation
	"23505": true, // unique_violation
	"22P02": true, // invalid_text_representation
}

// classifyPgErr wraps a database error with its retry classification.
// Serialization failures, deadlocks, lock timeouts and connection
// drops are transient; schema and permission problems are fatal.
func classifyPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return refresh.Transient(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case fatalPgCodes[pgErr.Code]:
			return refresh.Fatal(err)
		case strings.HasPrefix(pgErr.Code, "28"): // invalid_authorization
			return refresh.Fatal(err)
		case pgErr.Code == "40001" || pgErr.Code == "40P01": // serialization, deadlock
			return refresh.Transient(err)
		case pgErr.Code == "55P03" || pgErr.Code == "57014": // lock timeout, cancel
			return refresh.Transient(err)
		case strings.HasPrefix(pgErr.Code, "08"): // connection errors
			return refresh.Transient(err)
		case strings.HasPrefix(pgErr.Code, "53"): // insufficient resources
			return refresh.Transient(err)
		}
	}

	// Network hiccups and anything unrecognized get a retry.
	return refresh.Transient(err)
}
