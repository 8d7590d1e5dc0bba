package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/parts-ledger/internal/application/analytics"
	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// AnalyticsHandler expone la analítica simulada (datos aleatorios, etiquetados como tales).
type AnalyticsHandler struct {
	uc  *analytics.SimulatedUseCase
	log *logger.Logger
}

// NewAnalyticsHandler construye el handler.
func NewAnalyticsHandler(uc *analytics.SimulatedUseCase, log *logger.Logger) *AnalyticsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalyticsHandler{uc: uc, log: log}
}

// GetABCXYZ godoc
// @Summary      Clasificación ABC/XYZ simulada
// @Description  Demanda y pronóstico generados aleatoriamente sobre el catálogo del tenant. simulated=true siempre.
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Param        horizon  query  int  false  "Meses de pronóstico (default 3, max 12)"
// @Success      200  {object}  dto.SimulatedAnalyticsDTO
// @Router       /api/analytics/simulated/abc-xyz [get]
func (h *AnalyticsHandler) GetABCXYZ(c *fiber.Ctx) error {
	req := dto.SimulatedAnalyticsRequest{Horizon: c.QueryInt("horizon", 0)}
	out, err := h.uc.ABCXYZ(c.Context(), GetTenantID(c), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
