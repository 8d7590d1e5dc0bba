package repository

import (
	"context"
	"time"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// LedgerFilter filtros de consulta del libro. Los campos vacíos no filtran.
type LedgerFilter struct {
	TenantID   string // obligatorio
	PartID     string
	ActionType entity.ActionType
	From       *time.Time // inclusivo
	To         *time.Time // inclusivo
	Descending bool       // por defecto orden de commit (ascendente)
	Limit      int
	Offset     int
}

// LedgerEntryRepository define el puerto de persistencia append-only del libro.
// No expone update ni delete: las correcciones se registran como entradas compensatorias.
type LedgerEntryRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	List(ctx context.Context, filter LedgerFilter) ([]*entity.LedgerEntry, error)
	Count(ctx context.Context, filter LedgerFilter) (int, error)
	// ListByPart devuelve el historial completo del par en orden de commit.
	ListByPart(ctx context.Context, tenantID, partID string) ([]*entity.LedgerEntry, error)
}
