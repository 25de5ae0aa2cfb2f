package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"service-dispatch/internal/apperr"
)

// Postgres error codes and constraint names the repository translates
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	constraintAssignmentOrder = "order_delivery_assignments_order_id_key"
	constraintPendingRequest  = "delivery_requests_pending_uniq"
)

// IsDuplicate - signals that the error is a duplicate key violation.
func IsDuplicate(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == codeUniqueViolation
}

// IsNotFound - signals that the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsConflict - signals a serialization failure or a deadlock; the transaction may be retried.
func IsConflict(err error) bool {
	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) {
		return false
	}
	return pgerr.Code == codeSerializationFailure || pgerr.Code == codeDeadlockDetected
}

// mapError translates driver errors into application errors and wraps the rest with op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsConflict(err) {
		return apperr.ErrTransactionConflict.Wrap(err)
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == codeUniqueViolation {
		switch pgerr.ConstraintName {
		case constraintAssignmentOrder:
			return apperr.ErrOrderAlreadyAssigned.Wrap(err)
		case constraintPendingRequest:
			return apperr.ErrPendingRequestExists.Wrap(err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
