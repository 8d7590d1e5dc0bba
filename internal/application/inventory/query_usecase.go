package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// QueryUseCase lecturas paginadas y filtradas del libro y de los saldos (solo lectura).
type QueryUseCase struct {
	entries      repository.LedgerEntryRepository
	balances     repository.BalanceRepository
	parts        repository.PartRepository
	holds        repository.HoldsRepository
	defaultLimit int
	maxLimit     int
}

// PageLimits límites de paginación (normalmente desde config.LedgerConfig).
type PageLimits struct {
	Default int
	Max     int
}

// NewQueryUseCase construye el caso de uso. holds nil = NoHolds.
func NewQueryUseCase(
	entries repository.LedgerEntryRepository,
	balances repository.BalanceRepository,
	parts repository.PartRepository,
	holds repository.HoldsRepository,
	limits PageLimits,
) *QueryUseCase {
	if holds == nil {
		holds = NoHolds{}
	}
	if limits.Default <= 0 {
		limits.Default = 20
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &QueryUseCase{
		entries:      entries,
		balances:     balances,
		parts:        parts,
		holds:        holds,
		defaultLimit: limits.Default,
		maxLimit:     limits.Max,
	}
}

// ListLedger devuelve una página del libro del tenant. page/limit inválidos se ajustan;
// fechas mal formadas devuelven ErrInvalidInput y un action_type desconocido ErrInvalidActionType.
func (uc *QueryUseCase) ListLedger(ctx context.Context, tenantID string, req dto.LedgerQueryRequest) (*dto.LedgerPageResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrNotAuthorized
	}
	page := dto.PageRequest{Page: req.Page, Limit: req.Limit}.Clamp(uc.defaultLimit, uc.maxLimit)

	filter := repository.LedgerFilter{
		TenantID: tenantID,
		PartID:   strings.TrimSpace(req.PartID),
		Limit:    page.Limit,
		Offset:   page.Offset(),
	}
	if s := strings.TrimSpace(req.ActionType); s != "" {
		action, ok := entity.ParseActionType(strings.ToUpper(s))
		if !ok {
			return nil, domain.ErrInvalidActionType
		}
		filter.ActionType = action
	}
	var err error
	if filter.From, err = parseDate(req.StartDate, false); err != nil {
		return nil, err
	}
	if filter.To, err = parseDate(req.EndDate, true); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(req.Order)) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return nil, fmt.Errorf("%w: order debe ser asc o desc", domain.ErrInvalidInput)
	}

	// Listado y conteo son independientes: se consultan en paralelo.
	var (
		rows  []*entity.LedgerEntry
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = uc.entries.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = uc.entries.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make([]dto.LedgerEntryResponse, 0, len(rows))
	for _, e := range rows {
		data = append(data, ToEntryResponse(e))
	}
	return &dto.LedgerPageResponse{Data: data, Pagination: dto.NewPageResponse(page, total)}, nil
}

// GetBalance devuelve el saldo actual del par, o uno en cero si nunca hubo movimientos.
// Una parte inexistente o de otro tenant devuelve ErrNotFound.
func (uc *QueryUseCase) GetBalance(ctx context.Context, tenantID, partID string) (*dto.BalanceResponse, error) {
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

	b, err := uc.balances.Get(ctx, tenantID, partID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = entity.NewBalanceRecord(tenantID, partID)
	}
	holds, err := uc.holds.Holds(ctx, tenantID, partID)
	if err != nil {
		return nil, fmt.Errorf("%w: leer retenciones: %v", domain.ErrStorageUnavailable, err)
	}
	b.AvailableQuantity = ledger.Available(b.OnHandQuantity, holds)

	out := ToBalanceResponse(b)
	return &out, nil
}

// ListBalances lista los saldos del tenant. available_quantity es el valor persistido en el último movimiento.
func (uc *QueryUseCase) ListBalances(ctx context.Context, tenantID string, req dto.PageRequest) (*dto.BalancePageResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrNotAuthorized
	}
	page := req.Clamp(uc.defaultLimit, uc.maxLimit)
	rows, total, err := uc.balances.ListByTenant(ctx, tenantID, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	data := make([]dto.BalanceResponse, 0, len(rows))
	for _, b := range rows {
		data = append(data, ToBalanceResponse(b))
	}
	return &dto.BalancePageResponse{Data: data, Pagination: dto.NewPageResponse(page, total)}, nil
}

// parseDate acepta YYYY-MM-DD o RFC3339. Para fin de rango, una fecha sin hora cubre todo el día.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha inválida %q (use YYYY-MM-DD)", domain.ErrInvalidInput, s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
