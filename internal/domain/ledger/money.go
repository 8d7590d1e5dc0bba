package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/parts-ledger/internal/domain"
)

// CostScale decimales admitidos en costos y valores (columnas NUMERIC(p,4)).
const CostScale = 4

var (
	maxUnitCost   = decimal.New(1, 10) // NUMERIC(14,4)
	maxTotalValue = decimal.New(1, 16) // NUMERIC(20,4)
)

// ValidateUnitCost exige 0 <= costo < 1e10 con a lo sumo CostScale decimales.
// Un costo así se almacena sin redondeo.
func ValidateUnitCost(cost decimal.Decimal) error {
	switch {
	case cost.IsNegative():
		return fmt.Errorf("%w: unit_cost negativo", domain.ErrInvalidInput)
	case !cost.Equal(cost.Truncate(CostScale)):
		return fmt.Errorf("%w: unit_cost admite hasta %d decimales", domain.ErrInvalidInput, CostScale)
	case cost.GreaterThanOrEqual(maxUnitCost):
		return fmt.Errorf("%w: unit_cost debe ser menor que %s", domain.ErrInvalidInput, maxUnitCost)
	}
	return nil
}

// TotalValue calcula costo por cantidad y rechaza valores que no caben en total_value.
func TotalValue(cost decimal.Decimal, quantity int64) (decimal.Decimal, error) {
	if err := ValidateUnitCost(cost); err != nil {
		return decimal.Decimal{}, err
	}
	total := cost.Mul(decimal.NewFromInt(quantity))
	if total.GreaterThanOrEqual(maxTotalValue) {
		return decimal.Decimal{}, fmt.Errorf("%w: total_value debe ser menor que %s", domain.ErrInvalidInput, maxTotalValue)
	}
	return total, nil
}
