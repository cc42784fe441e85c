package apperr

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes the repositories care about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
)

// ClassifyStore translates a raw store error. Unique and foreign-key
// violations carry operation-specific meaning, so callers pass the code
// each should become; serialization failures and deadlocks always become
// retryable CONCURRENCY_CONFLICT.
func ClassifyStore(err error, onUnique, onFKMissing Code) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Wrap(onUnique, "conflicts with an existing record", err)
		case pgForeignKeyViolation:
			return Wrap(onFKMissing, "referenced record does not exist", err)
		case pgSerializationFail, pgDeadlockDetected:
			return Wrap(CodeConcurrencyConflict, "store conflict, retry the request", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, "store call timed out", err)
	}

	return Wrap(CodeInternal, "store operation failed", err)
}
