package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePartRequest body para POST /api/parts.
type CreatePartRequest struct {
	SKU      string          `json:"sku" validate:"required,max=64"`
	Name     string          `json:"name" validate:"required,max=200"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// PartResponse representación de un repuesto.
type PartResponse struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PartListResponse página de repuestos.
type PartListResponse struct {
	Data       []PartResponse `json:"data"`
	Pagination PageResponse   `json:"pagination"`
}
