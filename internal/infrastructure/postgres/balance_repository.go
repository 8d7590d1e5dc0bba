package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

const balanceColumns = `tenant_id, part_id, on_hand_quantity, available_quantity,
	last_restocked_at, last_issued_at, last_cost, updated_at`

// BalanceRepo saldo materializado por (tenant, parte) sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

// Get obtiene el saldo sin bloqueo. nil, nil si el par nunca tuvo movimientos.
func (r *BalanceRepo) Get(ctx context.Context, tenantID, partID string) (*entity.BalanceRecord, error) {
	query := `SELECT ` + balanceColumns + ` FROM ledger_balances WHERE tenant_id = $1 AND part_id = $2`
	b, err := scanBalance(r.q.QueryRow(ctx, query, tenantID, partID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get balance", err)
	}
	return b, nil
}

// GetForUpdate crea la fila en cero si no existe y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
// Dos primeros movimientos concurrentes sobre el mismo par se serializan en el INSERT ... ON CONFLICT.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tenantID, partID string) (*entity.BalanceRecord, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ledger_balances (tenant_id, part_id, on_hand_quantity, available_quantity, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (tenant_id, part_id) DO NOTHING`, tenantID, partID)
	if err != nil {
		return nil, mapError("init balance", err)
	}
	query := `SELECT ` + balanceColumns + ` FROM ledger_balances
		WHERE tenant_id = $1 AND part_id = $2
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, tenantID, partID))
	if err != nil {
		return nil, mapError("get balance for update", err)
	}
	return b, nil
}

// Upsert inserta o actualiza el saldo del par.
func (r *BalanceRepo) Upsert(ctx context.Context, b *entity.BalanceRecord) error {
	query := `
		INSERT INTO ledger_balances (tenant_id, part_id, on_hand_quantity, available_quantity,
			last_restocked_at, last_issued_at, last_cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, part_id) DO UPDATE SET
			on_hand_quantity = EXCLUDED.on_hand_quantity,
			available_quantity = EXCLUDED.available_quantity,
			last_restocked_at = EXCLUDED.last_restocked_at,
			last_issued_at = EXCLUDED.last_issued_at,
			last_cost = EXCLUDED.last_cost,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		b.TenantID, b.PartID, b.OnHandQuantity, b.AvailableQuantity,
		b.LastRestockedAt, b.LastIssuedAt, b.LastCost, b.UpdatedAt,
	)
	return mapError("upsert balance", err)
}

// ListByTenant saldos del tenant ordenados por parte, con el total para paginar.
func (r *BalanceRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.BalanceRecord, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_balances WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, mapError("count balances", err)
	}
	query := `SELECT ` + balanceColumns + ` FROM ledger_balances
		WHERE tenant_id = $1 ORDER BY part_id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, mapError("list balances", err)
	}
	list, err := collectBalances(rows)
	return list, total, err
}

// ListAll recorre todos los saldos (todos los tenants) para la reconciliación batch.
func (r *BalanceRepo) ListAll(ctx context.Context, limit, offset int) ([]*entity.BalanceRecord, error) {
	query := `SELECT ` + balanceColumns + ` FROM ledger_balances
		ORDER BY tenant_id, part_id LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, mapError("list all balances", err)
	}
	return collectBalances(rows)
}

func scanBalance(row pgx.Row) (*entity.BalanceRecord, error) {
	var b entity.BalanceRecord
	err := row.Scan(
		&b.TenantID, &b.PartID, &b.OnHandQuantity, &b.AvailableQuantity,
		&b.LastRestockedAt, &b.LastIssuedAt, &b.LastCost, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBalances(rows pgx.Rows) ([]*entity.BalanceRecord, error) {
	defer rows.Close()
	var list []*entity.BalanceRecord
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate balances", err)
	}
	return list, nil
}
