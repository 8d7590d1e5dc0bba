package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part representa un repuesto (SKU) del catálogo de una marca.
type Part struct {
	ID        string
	TenantID  string
	SKU       string // único por tenant
	Name      string
	UnitCost  decimal.Decimal // costo de referencia
	CreatedAt time.Time
	UpdatedAt time.Time
}
