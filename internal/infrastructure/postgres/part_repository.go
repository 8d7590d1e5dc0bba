package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.PartRepository = (*PartRepo)(nil)

// PartRepo catálogo de repuestos sobre PostgreSQL (usable con pool o tx).
type PartRepo struct {
	q Querier
}

// NewPartRepository construye el adaptador de repuestos. Pasar pool o tx (Querier).
func NewPartRepository(q Querier) *PartRepo {
	return &PartRepo{q: q}
}

// Create persiste un repuesto. SKU repetido en el tenant devuelve domain.ErrDuplicate.
func (r *PartRepo) Create(ctx context.Context, p *entity.Part) error {
	query := `
		INSERT INTO parts (id, tenant_id, sku, name, unit_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, p.ID, p.TenantID, p.SKU, p.Name, p.UnitCost, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return mapError("insert part", err)
	}
	return nil
}

// GetByID obtiene un repuesto por ID. nil, nil si no existe.
func (r *PartRepo) GetByID(ctx context.Context, id string) (*entity.Part, error) {
	query := `SELECT id, tenant_id, sku, name, unit_cost, created_at, updated_at FROM parts WHERE id = $1`
	return r.getOne(ctx, "get part", query, id)
}

// GetByTenantAndSKU obtiene un repuesto por SKU dentro del tenant.
func (r *PartRepo) GetByTenantAndSKU(ctx context.Context, tenantID, sku string) (*entity.Part, error) {
	query := `SELECT id, tenant_id, sku, name, unit_cost, created_at, updated_at FROM parts WHERE tenant_id = $1 AND sku = $2`
	return r.getOne(ctx, "get part by sku", query, tenantID, sku)
}

// ListByTenant lista repuestos del tenant ordenados por SKU.
func (r *PartRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Part, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM parts WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, mapError("count parts", err)
	}
	query := `
		SELECT id, tenant_id, sku, name, unit_cost, created_at, updated_at
		FROM parts WHERE tenant_id = $1 ORDER BY sku LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, mapError("list parts", err)
	}
	defer rows.Close()
	var list []*entity.Part
	for rows.Next() {
		var p entity.Part
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.UnitCost, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan part: %w", err)
		}
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("iterate parts", err)
	}
	return list, total, nil
}

func (r *PartRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.Part, error) {
	var p entity.Part
	err := r.q.QueryRow(ctx, query, args...).Scan(&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.UnitCost, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return &p, nil
}
