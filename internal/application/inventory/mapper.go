package inventory

import (
	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// ToEntryResponse convierte una entrada del libro a su DTO.
func ToEntryResponse(e *entity.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:           e.ID,
		TenantID:     e.TenantID,
		PartID:       e.PartID,
		ActionType:   string(e.ActionType),
		Quantity:     e.Quantity,
		Source:       e.Source,
		Destination:  e.Destination,
		UnitCost:     e.UnitCost,
		TotalValue:   e.TotalValue,
		BalanceAfter: e.BalanceAfter,
		ReferenceID:  e.ReferenceID,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
	}
}

// ToBalanceResponse convierte un saldo a su DTO. UpdatedAt cero (nunca persistido) se omite.
func ToBalanceResponse(b *entity.BalanceRecord) dto.BalanceResponse {
	out := dto.BalanceResponse{
		TenantID:          b.TenantID,
		PartID:            b.PartID,
		OnHandQuantity:    b.OnHandQuantity,
		AvailableQuantity: b.AvailableQuantity,
		LastRestockedAt:   b.LastRestockedAt,
		LastIssuedAt:      b.LastIssuedAt,
		LastCost:          b.LastCost,
	}
	if !b.UpdatedAt.IsZero() {
		t := b.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// ToMovementResponse arma la respuesta 201 de un movimiento.
func ToMovementResponse(e *entity.LedgerEntry, b *entity.BalanceRecord) dto.MovementResponse {
	return dto.MovementResponse{Entry: ToEntryResponse(e), Balance: ToBalanceResponse(b)}
}
