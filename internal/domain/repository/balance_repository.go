package repository

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// BalanceRepository define el puerto del saldo materializado por (tenant, parte).
// Usado dentro de transacciones para garantizar consistencia con el libro.
type BalanceRepository interface {
	// Get devuelve nil, nil si el par nunca tuvo movimientos.
	Get(ctx context.Context, tenantID, partID string) (*entity.BalanceRecord, error)
	// GetForUpdate bloquea la fila del par hasta el fin de la transacción; si no existe
	// la inicializa en cero dentro de la misma transacción.
	GetForUpdate(ctx context.Context, tenantID, partID string) (*entity.BalanceRecord, error)
	Upsert(ctx context.Context, balance *entity.BalanceRecord) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.BalanceRecord, int, error)
	// ListAll recorre todos los saldos (reconciliación).
	ListAll(ctx context.Context, limit, offset int) ([]*entity.BalanceRecord, error)
}

// HoldsRepository lee las retenciones que mantienen otros subsistemas.
type HoldsRepository interface {
	Holds(ctx context.Context, tenantID, partID string) (entity.StockHolds, error)
}
