package repository

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// PartRepository define el puerto de persistencia del catálogo de repuestos (DIP).
type PartRepository interface {
	Create(ctx context.Context, part *entity.Part) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Part, error)
	GetByTenantAndSKU(ctx context.Context, tenantID, sku string) (*entity.Part, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Part, int, error)
}
