package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// ReconcileUseCase verifica que el historial del libro, plegado desde cero, coincida con cada
// balance_after y con el saldo materializado. Nunca corrige: solo reporta.
type ReconcileUseCase struct {
	entries  repository.LedgerEntryRepository
	balances repository.BalanceRepository
	parts    repository.PartRepository
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(
	entries repository.LedgerEntryRepository,
	balances repository.BalanceRepository,
	parts repository.PartRepository,
) *ReconcileUseCase {
	return &ReconcileUseCase{entries: entries, balances: balances, parts: parts}
}

// ReconcilePart reconcilia una parte del tenant autenticado.
func (uc *ReconcileUseCase) ReconcilePart(ctx context.Context, tenantID, partID string) (*dto.ReconcileReportDTO, error) {
	if tenantID == "" {
		return nil, domain.ErrNotAuthorized
	}
	partID = strings.TrimSpace(partID)
	if partID == "" {
		return nil, fmt.Errorf("%w: part_id es requerido", domain.ErrInvalidInput)
	}
	part, err := uc.parts.GetByID(ctx, partID)
	if err != nil {
		return nil, err
	}
	if part == nil || part.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return uc.Reconcile(ctx, tenantID, partID)
}

// Reconcile compara el fold del historial con el saldo almacenado (sin chequeo de parte; uso interno/CLI).
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, tenantID, partID string) (*dto.ReconcileReportDTO, error) {
	history, err := uc.entries.ListByPart(ctx, tenantID, partID)
	if err != nil {
		return nil, err
	}
	res, err := ledger.Fold(history)
	if err != nil {
		return nil, fmt.Errorf("reconciliar %s/%s: %w", tenantID, partID, err)
	}
	b, err := uc.balances.Get(ctx, tenantID, partID)
	if err != nil {
		return nil, err
	}
	var recorded int64
	if b != nil {
		recorded = b.OnHandQuantity
	}

	report := &dto.ReconcileReportDTO{
		TenantID:        tenantID,
		PartID:          partID,
		Entries:         res.Entries,
		LedgerBalance:   res.Balance,
		RecordedBalance: recorded,
		Consistent:      res.Balance == recorded && len(res.Drifts) == 0 && !res.Negative,
	}
	for _, d := range res.Drifts {
		report.EntryDrifts = append(report.EntryDrifts, dto.EntryDriftDTO{
			EntryID:  d.EntryID,
			Position: d.Index,
			Expected: d.Expected,
			Recorded: d.Recorded,
		})
	}
	return report, nil
}
