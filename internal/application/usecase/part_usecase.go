package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// PartUseCase catálogo de repuestos por tenant. El stock no se toca aquí: solo vía movimientos del libro.
type PartUseCase struct {
	repo         repository.PartRepository
	validate     *validator.Validate
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// NewPartUseCase construye el caso de uso con los límites de paginación.
func NewPartUseCase(repo repository.PartRepository, defaultLimit, maxLimit int) *PartUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &PartUseCase{
		repo:         repo,
		validate:     validator.New(),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create registra un repuesto. El SKU es único por tenant (domain.ErrDuplicate).
func (uc *PartUseCase) Create(ctx context.Context, tenantID string, in dto.CreatePartRequest) (*dto.PartResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrNotAuthorized
	}
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if err := uc.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, dto.ValidationMessage(err))
	}
	if err := ledger.ValidateUnitCost(in.UnitCost); err != nil {
		return nil, err
	}

	existing, err := uc.repo.GetByTenantAndSKU(ctx, tenantID, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := uc.now()
	part := &entity.Part{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		SKU:       in.SKU,
		Name:      in.Name,
		UnitCost:  in.UnitCost,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, part); err != nil {
		return nil, err
	}
	return toPartResponse(part), nil
}

// GetByID obtiene un repuesto del tenant. Uno de otro tenant se reporta como inexistente.
func (uc *PartUseCase) GetByID(ctx context.Context, tenantID, id string) (*dto.PartResponse, error) {
	part, err := uc.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if part == nil || part.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return toPartResponse(part), nil
}

// List lista repuestos del tenant paginados por SKU.
func (uc *PartUseCase) List(ctx context.Context, tenantID string, req dto.PageRequest) (*dto.PartListResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrNotAuthorized
	}
	page := req.Clamp(uc.defaultLimit, uc.maxLimit)
	list, total, err := uc.repo.ListByTenant(ctx, tenantID, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	items := make([]dto.PartResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toPartResponse(p))
	}
	return &dto.PartListResponse{Data: items, Pagination: dto.NewPageResponse(page, total)}, nil
}

func toPartResponse(p *entity.Part) *dto.PartResponse {
	return &dto.PartResponse{
		ID:        p.ID,
		TenantID:  p.TenantID,
		SKU:       p.SKU,
		Name:      p.Name,
		UnitCost:  p.UnitCost,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
