package postgres

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.HoldsRepository = (*HoldsRepo)(nil)

// HoldsRepo lee las retenciones de stock (reservas, defectuosos, cuarentena) que mantienen
// otros módulos en stock_holds. El libro solo las consulta.
type HoldsRepo struct {
	q Querier
}

// NewHoldsRepository construye el adaptador.
func NewHoldsRepository(q Querier) *HoldsRepo {
	return &HoldsRepo{q: q}
}

// Holds suma las retenciones del par por tipo.
func (r *HoldsRepo) Holds(ctx context.Context, tenantID, partID string) (entity.StockHolds, error) {
	query := `
		SELECT
			COALESCE(SUM(quantity) FILTER (WHERE hold_type = 'reserved'), 0)::bigint,
			COALESCE(SUM(quantity) FILTER (WHERE hold_type = 'defective'), 0)::bigint,
			COALESCE(SUM(quantity) FILTER (WHERE hold_type = 'quarantine'), 0)::bigint
		FROM stock_holds WHERE tenant_id = $1 AND part_id = $2`
	var h entity.StockHolds
	if err := r.q.QueryRow(ctx, query, tenantID, partID).Scan(&h.Reserved, &h.Defective, &h.Quarantine); err != nil {
		return entity.StockHolds{}, mapError("sum stock holds", err)
	}
	return h, nil
}
