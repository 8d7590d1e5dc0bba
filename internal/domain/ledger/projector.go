// Package ledger contiene el proyector de saldos: la regla de dirección y su aplicación
// sobre un BalanceRecord (servicio de dominio, sin I/O).
package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// Delta devuelve el cambio con signo que produce un movimiento.
// Tipos fuera de los seis reconocidos devuelven ErrInvalidActionType: no hay dirección por defecto.
func Delta(action entity.ActionType, quantity int64) (int64, error) {
	switch {
	case action.IsInbound():
		return quantity, nil
	case action.IsOutbound():
		return -quantity, nil
	default:
		return 0, domain.ErrInvalidActionType
	}
}

// NextBalance calcula el saldo resultante. Una salida que deja el saldo negativo se rechaza
// con *domain.InsufficientStockError; nunca se recorta a cero. Una entrada que supera
// math.MaxInt64 se rechaza como cantidad inválida.
func NextBalance(onHand int64, action entity.ActionType, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	delta, err := Delta(action, quantity)
	if err != nil {
		return 0, err
	}
	if delta > 0 && onHand > math.MaxInt64-delta {
		return 0, fmt.Errorf("%w: el saldo superaría el máximo admitido (%d en mano)", domain.ErrInvalidQuantity, onHand)
	}
	next := onHand + delta
	if next < 0 {
		return 0, &domain.InsufficientStockError{Available: onHand, Requested: quantity}
	}
	return next, nil
}

// Apply aplica el movimiento al saldo y actualiza la contabilidad derivada
// (último reabastecimiento, última salida, último costo). Devuelve el nuevo saldo en mano.
// Si hay error el registro queda intacto.
func Apply(b *entity.BalanceRecord, action entity.ActionType, quantity int64, unitCost *decimal.Decimal, at time.Time) (int64, error) {
	next, err := NextBalance(b.OnHandQuantity, action, quantity)
	if err != nil {
		return 0, err
	}
	b.OnHandQuantity = next
	if action.IsInbound() {
		t := at
		b.LastRestockedAt = &t
	} else {
		t := at
		b.LastIssuedAt = &t
	}
	if unitCost != nil {
		c := *unitCost
		b.LastCost = &c
	}
	b.UpdatedAt = at
	return next, nil
}

// Available calcula la disponibilidad: en mano menos reservas, defectuosos y cuarentena.
func Available(onHand int64, holds entity.StockHolds) int64 {
	return onHand - holds.Total()
}

// Drift describe una entrada cuyo BalanceAfter no coincide con el acumulado.
type Drift struct {
	EntryID  string
	Index    int
	Expected int64 // acumulado recalculado
	Recorded int64 // BalanceAfter almacenado
}

// FoldResult resultado de recorrer el historial completo desde cero.
type FoldResult struct {
	Balance  int64
	Entries  int
	Drifts   []Drift
	Negative bool // el acumulado llegó a ser negativo en algún punto
}

// Fold recorre las entradas en orden de commit aplicando la regla de dirección desde cero
// y verifica el BalanceAfter de cada una. Tipos desconocidos devuelven error.
func Fold(entries []*entity.LedgerEntry) (FoldResult, error) {
	var res FoldResult
	for i, e := range entries {
		delta, err := Delta(e.ActionType, e.Quantity)
		if err != nil {
			return res, err
		}
		res.Balance += delta
		if res.Balance < 0 {
			res.Negative = true
		}
		if e.BalanceAfter != res.Balance {
			res.Drifts = append(res.Drifts, Drift{EntryID: e.ID, Index: i, Expected: res.Balance, Recorded: e.BalanceAfter})
		}
	}
	res.Entries = len(entries)
	return res, nil
}
