package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.LedgerEntryRepository = (*LedgerEntryRepo)(nil)

const ledgerColumns = `id, tenant_id, part_id, action_type, quantity, source, destination,
	unit_cost, total_value, balance_after, COALESCE(reference_id, ''), created_by, created_at`

// LedgerEntryRepo libro append-only sobre PostgreSQL (usable con pool o tx).
// No expone UPDATE ni DELETE; el trigger ledger_entries_immutable los rechaza en la base.
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

// Append inserta una entrada. Dentro de la tx del movimiento.
func (r *LedgerEntryRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, tenant_id, part_id, action_type, quantity, source, destination,
			unit_cost, total_value, balance_after, reference_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.TenantID, e.PartID, string(e.ActionType), e.Quantity, e.Source, e.Destination,
		e.UnitCost, e.TotalValue, e.BalanceAfter, e.ReferenceID, e.CreatedBy, e.CreatedAt,
	)
	return mapError("insert ledger entry", err)
}

// List devuelve una página de entradas filtradas, en orden de commit (o inverso).
func (r *LedgerEntryRepo) List(ctx context.Context, f repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	where, args := ledgerWhere(f)
	order := "ASC"
	if f.Descending {
		order = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE %s ORDER BY created_at %s, seq %s`,
		ledgerColumns, where, order, order)
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list ledger entries", err)
	}
	return collectEntries(rows)
}

// Count total de entradas para los mismos filtros (sin paginación).
func (r *LedgerEntryRepo) Count(ctx context.Context, f repository.LedgerFilter) (int, error) {
	where, args := ledgerWhere(f)
	var n int
	err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries WHERE "+where, args...).Scan(&n)
	if err != nil {
		return 0, mapError("count ledger entries", err)
	}
	return n, nil
}

// ListByPart historial completo del par en orden de commit (reconciliación).
func (r *LedgerEntryRepo) ListByPart(ctx context.Context, tenantID, partID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries WHERE tenant_id = $1 AND part_id = $2
		ORDER BY created_at ASC, seq ASC`
	rows, err := r.q.Query(ctx, query, tenantID, partID)
	if err != nil {
		return nil, mapError("list ledger by part", err)
	}
	return collectEntries(rows)
}

func ledgerWhere(f repository.LedgerFilter) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{f.TenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.PartID != "" {
		add("part_id = $%d", f.PartID)
	}
	if f.ActionType != "" {
		add("action_type = $%d", string(f.ActionType))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	return strings.Join(conds, " AND "), args
}

func collectEntries(rows pgx.Rows) ([]*entity.LedgerEntry, error) {
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var (
			e      entity.LedgerEntry
			action string
		)
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.PartID, &action, &e.Quantity, &e.Source, &e.Destination,
			&e.UnitCost, &e.TotalValue, &e.BalanceAfter, &e.ReferenceID, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.ActionType = entity.ActionType(action)
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate ledger entries", err)
	}
	return list, nil
}
