package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// errorMapping status, código y mensaje público por error de dominio.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string // vacío = usar err.Error() (mensajes de dominio, sin internals)
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY", ""},
	{domain.ErrInvalidActionType, fiber.StatusBadRequest, "INVALID_ACTION_TYPE", ""},
	{domain.ErrMissingLocation, fiber.StatusBadRequest, "MISSING_LOCATION", ""},
	{domain.ErrInsufficientStock, fiber.StatusBadRequest, "INSUFFICIENT_STOCK", ""},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", ""},
	{domain.ErrNotAuthorized, fiber.StatusForbidden, "NOT_AUTHORIZED", domain.ErrNotAuthorized.Error()},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", domain.ErrNotFound.Error()},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE", domain.ErrDuplicate.Error()},
	{domain.ErrIdempotencyKeyReused, fiber.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", domain.ErrIdempotencyKeyReused.Error()},
	{domain.ErrConcurrentModification, fiber.StatusConflict, "CONCURRENT_MODIFICATION", domain.ErrConcurrentModification.Error()},
	{domain.ErrStorageUnavailable, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", domain.ErrStorageUnavailable.Error()},
}

// writeError traduce err a la respuesta HTTP. Errores no mapeados -> 500 genérico y log con detalle.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: ise.Error()})
	}
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		if m.status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("error de almacenamiento")
		}
		return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: msg, Retryable: domain.IsRetryable(err)})
	}
	log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
