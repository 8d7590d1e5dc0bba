package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidQuantity        = errors.New("la cantidad debe ser un entero positivo")
	ErrInvalidActionType      = errors.New("tipo de movimiento no reconocido")
	ErrMissingLocation        = errors.New("origen y destino son obligatorios")
	ErrInsufficientStock      = errors.New("inventario insuficiente")
	ErrConcurrentModification = errors.New("el saldo fue modificado concurrentemente, reintente")
	ErrNotAuthorized          = errors.New("no autorizado para operar sobre el recurso")
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrStorageUnavailable     = errors.New("almacenamiento no disponible")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrIdempotencyKeyReused   = errors.New("la Idempotency-Key ya se usó con otro movimiento")
)

// InsufficientStockError detalla el rechazo de una salida que dejaría el saldo negativo.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventario insuficiente, disponible: %d", e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// IsRetryable informa si el error es transitorio y el caller puede reenviar la operación.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrStorageUnavailable)
}
