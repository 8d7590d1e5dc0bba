package inventory

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.HoldsRepository = NoHolds{}

// NoHolds proveedor por defecto: sin reservas, defectuosos ni cuarentena (disponible = en mano).
type NoHolds struct{}

// Holds siempre devuelve cero.
func (NoHolds) Holds(context.Context, string, string) (entity.StockHolds, error) {
	return entity.StockHolds{}, nil
}
