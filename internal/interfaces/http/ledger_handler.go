package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/inventory"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// Headers de idempotencia en POST /api/inventory/movements.
const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
)

// LedgerHandler maneja movimientos, libro, saldos y reconciliación (protegido).
type LedgerHandler struct {
	record    *inventory.RecordMovementUseCase
	query     *inventory.QueryUseCase
	reconcile *inventory.ReconcileUseCase
	log       *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(record *inventory.RecordMovementUseCase, query *inventory.QueryUseCase, reconcile *inventory.ReconcileUseCase, log *logger.Logger) *LedgerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerHandler{record: record, query: query, reconcile: reconcile, log: log}
}

// RecordMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Agrega una entrada al libro y actualiza el saldo en una sola transacción.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave para reenvíos seguros"
// @Param        body  body  dto.RecordMovementRequest  true  "part_id, action_type, quantity, source, destination, unit_cost, reference_id"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *LedgerHandler) RecordMovement(c *fiber.Ctx) error {
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	input := inventory.FromRequest(GetTenantID(c), GetUserID(c), in)
	resp, replayed, err := h.record.RecordMovementIdempotent(c.Context(), c.Get(HeaderIdempotencyKey), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if replayed {
		c.Set(HeaderIdempotentReplayed, "true")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListLedger godoc
// @Summary      Consultar libro de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        part_id      query  string  false  "Filtrar por repuesto"
// @Param        action_type  query  string  false  "ADD, TRANSFER_IN, REVERSE_IN, TRANSFER_OUT, REVERSE_OUT, CONSUMED"
// @Param        start_date   query  string  false  "YYYY-MM-DD o RFC3339"
// @Param        end_date     query  string  false  "YYYY-MM-DD (incluye el día) o RFC3339"
// @Param        order        query  string  false  "asc (defecto) | desc"
// @Param        page         query  int     false  "Página (desde 1)"
// @Param        limit        query  int     false  "Tamaño de página (máx 100)"
// @Success      200  {object}  dto.LedgerPageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/ledger [get]
func (h *LedgerHandler) ListLedger(c *fiber.Ctx) error {
	p := pageQuery(c)
	q := dto.LedgerQueryRequest{
		PartID:     c.Query("part_id"),
		ActionType: c.Query("action_type"),
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
		Order:      c.Query("order"),
		Page:       p.Page,
		Limit:      p.Limit,
	}
	page, err := h.query.ListLedger(c.Context(), GetTenantID(c), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(page)
}

// GetBalance godoc
// @Summary      Saldo actual de un repuesto
// @Description  Devuelve on_hand y available; en cero si nunca hubo movimientos.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        part_id  query  string  true  "Repuesto"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/balance [get]
func (h *LedgerHandler) GetBalance(c *fiber.Ctx) error {
	b, err := h.query.GetBalance(c.Context(), GetTenantID(c), c.Query("part_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(b)
}

// ListBalances godoc
// @Summary      Saldos del tenant
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        page   query  int  false  "Página"
// @Param        limit  query  int  false  "Tamaño de página"
// @Success      200  {object}  dto.BalancePageResponse
// @Router       /api/inventory/balances [get]
func (h *LedgerHandler) ListBalances(c *fiber.Ctx) error {
	page, err := h.query.ListBalances(c.Context(), GetTenantID(c), pageQuery(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(page)
}

// Reconcile godoc
// @Summary      Reconciliar libro vs saldo
// @Description  Recalcula el saldo desde el historial y reporta diferencias. No modifica datos.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        part_id  query  string  true  "Repuesto"
// @Success      200  {object}  dto.ReconcileReportDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/ledger/reconcile [get]
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconcile.ReconcilePart(c.Context(), GetTenantID(c), c.Query("part_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(report)
}
