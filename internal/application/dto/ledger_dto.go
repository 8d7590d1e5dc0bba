package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest body para POST /api/inventory/movements.
// Tenant y actor salen de la sesión autenticada, nunca del body.
type RecordMovementRequest struct {
	PartID      string           `json:"part_id"`
	ActionType  string           `json:"action_type"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	ReferenceID string           `json:"reference_id,omitempty"`
}

// LedgerEntryResponse representación de una entrada del libro.
type LedgerEntryResponse struct {
	ID           string           `json:"id"`
	TenantID     string           `json:"tenant_id"`
	PartID       string           `json:"part_id"`
	ActionType   string           `json:"action_type"`
	Quantity     int64            `json:"quantity"`
	Source       string           `json:"source"`
	Destination  string           `json:"destination"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	TotalValue   *decimal.Decimal `json:"total_value,omitempty"`
	BalanceAfter int64            `json:"balance_after"`
	ReferenceID  string           `json:"reference_id,omitempty"`
	CreatedBy    string           `json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
}

// BalanceResponse saldo materializado de un (tenant, parte).
type BalanceResponse struct {
	TenantID          string           `json:"tenant_id"`
	PartID            string           `json:"part_id"`
	OnHandQuantity    int64            `json:"on_hand_quantity"`
	AvailableQuantity int64            `json:"available_quantity"`
	LastRestockedAt   *time.Time       `json:"last_restocked_at,omitempty"`
	LastIssuedAt      *time.Time       `json:"last_issued_at,omitempty"`
	LastCost          *decimal.Decimal `json:"last_cost,omitempty"`
	UpdatedAt         *time.Time       `json:"updated_at,omitempty"`
}

// MovementResponse respuesta 201 de un movimiento aceptado.
type MovementResponse struct {
	Entry   LedgerEntryResponse `json:"entry"`
	Balance BalanceResponse     `json:"balance"`
}

// LedgerQueryRequest query params de GET /api/inventory/ledger.
type LedgerQueryRequest struct {
	PartID     string `query:"part_id"`
	ActionType string `query:"action_type"`
	StartDate  string `query:"start_date"` // YYYY-MM-DD o RFC3339
	EndDate    string `query:"end_date"`   // YYYY-MM-DD (incluye todo el día) o RFC3339
	Order      string `query:"order"`      // asc (defecto) | desc
	Page       int    `query:"page"`
	Limit      int    `query:"limit"`
}

// LedgerPageResponse página del libro.
type LedgerPageResponse struct {
	Data       []LedgerEntryResponse `json:"data"`
	Pagination PageResponse          `json:"pagination"`
}

// BalancePageResponse página de saldos del tenant.
type BalancePageResponse struct {
	Data       []BalanceResponse `json:"data"`
	Pagination PageResponse      `json:"pagination"`
}

// EntryDriftDTO entrada cuyo balance_after no coincide con el acumulado recalculado.
type EntryDriftDTO struct {
	EntryID  string `json:"entry_id"`
	Position int    `json:"position"`
	Expected int64  `json:"expected"`
	Recorded int64  `json:"recorded"`
}

// ReconcileReportDTO resultado de reconciliar el libro contra el saldo materializado.
type ReconcileReportDTO struct {
	TenantID        string          `json:"tenant_id"`
	PartID          string          `json:"part_id"`
	Entries         int             `json:"entries"`
	LedgerBalance   int64           `json:"ledger_balance"`   // fold del historial desde cero
	RecordedBalance int64           `json:"recorded_balance"` // on_hand_quantity almacenado
	Consistent      bool            `json:"consistent"`
	EntryDrifts     []EntryDriftDTO `json:"entry_drifts,omitempty"`
}
