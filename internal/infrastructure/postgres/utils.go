package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/parts-ledger/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// isConflict detecta errores de serialización, deadlock o lock_timeout.
func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}

// isOutOfRange detecta numeric_value_out_of_range (22003).
func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}

// isUnavailable detecta fallas de conexión (sin respuesta del servidor o clase 08).
func isUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01"
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr) || pgconn.SafeToRetry(err)
}

// mapError traduce errores de pgx a errores de dominio; op describe la operación.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case isConflict(err):
		return fmt.Errorf("%w: %s: %v", domain.ErrConcurrentModification, op, err)
	case isUnavailable(err):
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageUnavailable, op, err)
	case isOutOfRange(err):
		return fmt.Errorf("%w: %s: valor numérico fuera de rango", domain.ErrInvalidInput, op)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
