package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

func TestWriteError_Mapeo(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		code      string
		retryable bool
	}{
		{domain.ErrInvalidQuantity, 400, "INVALID_QUANTITY", false},
		{&domain.InsufficientStockError{Available: 3, Requested: 5}, 400, "INSUFFICIENT_STOCK", false},
		{fmt.Errorf("%w: part_id: required", domain.ErrInvalidInput), 400, "VALIDATION", false},
		{domain.ErrNotAuthorized, 403, "NOT_AUTHORIZED", false},
		{domain.ErrNotFound, 404, "NOT_FOUND", false},
		{domain.ErrDuplicate, 409, "DUPLICATE", false},
		{domain.ErrIdempotencyKeyReused, 422, "IDEMPOTENCY_KEY_REUSED", false},
		{fmt.Errorf("%w: lock: 55P03", domain.ErrConcurrentModification), 409, "CONCURRENT_MODIFICATION", true},
		{fmt.Errorf("%w: dial tcp", domain.ErrStorageUnavailable), 503, "STORAGE_UNAVAILABLE", true},
		{errors.New("pq: relation ledger_entries does not exist"), 500, "INTERNAL", false},
	}
	for _, tc := range cases {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error { return writeError(c, logger.Nop(), tc.err) })
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)

		var body dto.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, tc.status, resp.StatusCode, tc.code)
		assert.Equal(t, tc.code, body.Code)
		assert.Equal(t, tc.retryable, body.Retryable, tc.code)
		assert.NotContains(t, body.Message, "lock: 55P03")
		assert.NotContains(t, body.Message, "ledger_entries")
	}
}

func TestWriteError_MensajeConDisponible(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return writeError(c, logger.Nop(), fmt.Errorf("tx: %w", &domain.InsufficientStockError{Available: 30, Requested: 35}))
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "inventario insuficiente, disponible: 30", body.Message)
}
