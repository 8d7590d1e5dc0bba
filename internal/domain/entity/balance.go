package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRecord es la proyección materializada del libro para un (tenant, parte).
// Se crea en cero con el primer movimiento y nunca se elimina.
type BalanceRecord struct {
	TenantID          string
	PartID            string
	OnHandQuantity    int64
	AvailableQuantity int64 // OnHand menos retenciones de otros subsistemas
	LastRestockedAt   *time.Time
	LastIssuedAt      *time.Time
	LastCost          *decimal.Decimal
	UpdatedAt         time.Time
}

// NewBalanceRecord devuelve el saldo inicial (cero) de un par sin movimientos.
func NewBalanceRecord(tenantID, partID string) *BalanceRecord {
	return &BalanceRecord{TenantID: tenantID, PartID: partID}
}

// StockHolds unidades retenidas por colaboradores (reservas, defectuosos, cuarentena).
type StockHolds struct {
	Reserved   int64
	Defective  int64
	Quarantine int64
}

// Total suma todas las retenciones.
func (h StockHolds) Total() int64 {
	return h.Reserved + h.Defective + h.Quarantine
}
