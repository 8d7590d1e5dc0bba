package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionType clasifica un movimiento del libro; la dirección se deriva del tipo, nunca del signo.
type ActionType string

// Tipos de movimiento reconocidos.
const (
	ActionAdd         ActionType = "ADD"          // alta de stock
	ActionTransferIn  ActionType = "TRANSFER_IN"  // traslado recibido
	ActionTransferOut ActionType = "TRANSFER_OUT" // traslado enviado
	ActionReverseIn   ActionType = "REVERSE_IN"   // reverso que devuelve unidades
	ActionReverseOut  ActionType = "REVERSE_OUT"  // reverso que retira unidades
	ActionConsumed    ActionType = "CONSUMED"     // consumo en servicio
)

// ActionTypes lista los seis tipos válidos en orden estable.
var ActionTypes = []ActionType{
	ActionAdd, ActionTransferIn, ActionTransferOut, ActionReverseIn, ActionReverseOut, ActionConsumed,
}

// ParseActionType valida un valor recibido desde fuera.
func ParseActionType(s string) (ActionType, bool) {
	for _, t := range ActionTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsInbound indica si el tipo aumenta el saldo.
func (t ActionType) IsInbound() bool {
	return t == ActionAdd || t == ActionTransferIn || t == ActionReverseIn
}

// IsOutbound indica si el tipo disminuye el saldo.
func (t ActionType) IsOutbound() bool {
	return t == ActionTransferOut || t == ActionReverseOut || t == ActionConsumed
}

// LedgerEntry es un movimiento inmutable una vez escrito.
// BalanceAfter es el saldo en mano inmediatamente después de aplicar el movimiento.
type LedgerEntry struct {
	ID           string
	TenantID     string
	PartID       string
	ActionType   ActionType
	Quantity     int64 // siempre positivo
	Source       string
	Destination  string
	UnitCost     *decimal.Decimal
	TotalValue   *decimal.Decimal // UnitCost * Quantity cuando hay costo
	BalanceAfter int64
	ReferenceID  string // envío u orden de origen (opcional)
	CreatedBy    string
	CreatedAt    time.Time
}
