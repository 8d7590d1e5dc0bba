package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/parts-ledger/internal/application/analytics"
	"github.com/jhoicas/parts-ledger/internal/application/inventory"
	"github.com/jhoicas/parts-ledger/internal/application/usecase"
	"github.com/jhoicas/parts-ledger/pkg/jwt"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RecordMovement *inventory.RecordMovementUseCase
	Query          *inventory.QueryUseCase
	Reconcile      *inventory.ReconcileUseCase
	PartUC         *usecase.PartUseCase
	SimulatedUC    *analytics.SimulatedUseCase
	JWTSecret      string
	Logger         *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole(jwt.RoleSuperAdmin, jwt.RoleBrand, jwt.RoleServiceCenter)
	managers := RequireRole(jwt.RoleSuperAdmin, jwt.RoleBrand)

	// Libro de inventario
	inv := protected.Group("/inventory", anyRole)
	ledgerHandler := NewLedgerHandler(deps.RecordMovement, deps.Query, deps.Reconcile, deps.Logger)
	inv.Post("/movements", ledgerHandler.RecordMovement)
	inv.Get("/ledger", ledgerHandler.ListLedger)
	inv.Get("/ledger/reconcile", ledgerHandler.Reconcile)
	inv.Get("/balance", ledgerHandler.GetBalance)
	inv.Get("/balances", ledgerHandler.ListBalances)

	// Catálogo de repuestos
	parts := protected.Group("/parts")
	partHandler := NewPartHandler(deps.PartUC, deps.Logger)
	parts.Post("/", managers, partHandler.Create)
	parts.Get("/", anyRole, partHandler.List)
	parts.Get("/:id", anyRole, partHandler.GetByID)

	// Analítica simulada
	if deps.SimulatedUC != nil {
		analyticsGroup := protected.Group("/analytics", managers)
		analyticsHandler := NewAnalyticsHandler(deps.SimulatedUC, deps.Logger)
		analyticsGroup.Get("/simulated/abc-xyz", analyticsHandler.GetABCXYZ)
	}
}
