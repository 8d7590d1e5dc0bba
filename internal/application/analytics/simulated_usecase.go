// Package analytics genera la analítica simulada del portal (clasificación ABC/XYZ y pronóstico).
// Todo dato de demanda es aleatorio: no se lee el libro ni se garantiza ninguna propiedad.
package analytics

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

const (
	historyMonths  = 12
	defaultHorizon = 3
	maxHorizon     = 12
	maxParts       = 500
	partsPageSize  = 100
)

var (
	hundred = decimal.NewFromInt(100)
	shareA  = decimal.NewFromInt(80)
	shareB  = decimal.NewFromInt(95)
)

// SimulatedUseCase arma la matriz ABC/XYZ sobre el catálogo del tenant con demanda aleatoria.
type SimulatedUseCase struct {
	parts repository.PartRepository
	seed  int64 // 0 = semilla derivada del día
	now   func() time.Time
}

// NewSimulatedUseCase construye el caso de uso. seed fijo hace la salida reproducible.
func NewSimulatedUseCase(parts repository.PartRepository, seed int64) *SimulatedUseCase {
	return &SimulatedUseCase{parts: parts, seed: seed, now: func() time.Time { return time.Now().UTC() }}
}

// ABCXYZ clasifica hasta maxParts repuestos del tenant.
func (uc *SimulatedUseCase) ABCXYZ(ctx context.Context, tenantID string, req dto.SimulatedAnalyticsRequest) (*dto.SimulatedAnalyticsDTO, error) {
	if tenantID == "" {
		return nil, domain.ErrNotAuthorized
	}
	horizon := req.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	if horizon > maxHorizon {
		horizon = maxHorizon
	}

	parts, err := uc.loadParts(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	seed := uc.seedFor(tenantID, now)
	rng := rand.New(rand.NewSource(seed))

	items := make([]dto.SimulatedPartClassDTO, 0, len(parts))
	total := decimal.Zero
	for _, p := range parts {
		history := simulateDemand(rng)
		var units int64
		for _, q := range history {
			units += q
		}
		cost := p.UnitCost
		if !cost.IsPositive() {
			cost = decimal.NewFromFloat(5 + rng.Float64()*95).Round(2)
		}
		value := cost.Mul(decimal.NewFromInt(units)).Round(2)
		total = total.Add(value)

		cv := coefficientOfVariation(history)
		items = append(items, dto.SimulatedPartClassDTO{
			PartID:      p.ID,
			SKU:         p.SKU,
			Name:        p.Name,
			AnnualValue: value,
			DemandCV:    math.Round(cv*1000) / 1000,
			XYZ:         xyzClass(cv),
			History:     history,
			Forecast:    movingAverageForecast(history, horizon),
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].AnnualValue.GreaterThan(items[j].AnnualValue) })
	matrix := make(map[string]int)
	cumulative := decimal.Zero
	for i := range items {
		share := decimal.Zero
		if total.IsPositive() {
			share = items[i].AnnualValue.Div(total).Mul(hundred)
		}
		cumulative = cumulative.Add(share)
		items[i].ValueSharePct = share.Round(2)
		items[i].ABC = abcClass(cumulative.Sub(share))
		matrix[items[i].ABC+items[i].XYZ]++
	}

	return &dto.SimulatedAnalyticsDTO{
		Simulated:   true,
		Seed:        seed,
		GeneratedAt: now,
		Horizon:     horizon,
		Matrix:      matrix,
		Items:       items,
	}, nil
}

func (uc *SimulatedUseCase) loadParts(ctx context.Context, tenantID string) ([]*entity.Part, error) {
	var out []*entity.Part
	for offset := 0; offset < maxParts; offset += partsPageSize {
		page, total, err := uc.parts.ListByTenant(ctx, tenantID, partsPageSize, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < partsPageSize || len(out) >= total {
			break
		}
	}
	return out, nil
}

// seedFor combina la semilla configurada (o el día) con el tenant para que cada marca vea datos distintos.
func (uc *SimulatedUseCase) seedFor(tenantID string, now time.Time) int64 {
	base := uc.seed
	if base == 0 {
		y, m, d := now.Date()
		base = int64(y*10000 + int(m)*100 + d)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(tenantID))
	return base ^ int64(h.Sum64()&math.MaxInt64)
}

func simulateDemand(rng *rand.Rand) []int64 {
	mean := 5 + rng.Float64()*95
	spread := rng.Float64() * 1.4 // mezcla de demandas estables y erráticas
	history := make([]int64, historyMonths)
	for i := range history {
		v := mean + rng.NormFloat64()*mean*spread
		if v < 0 {
			v = 0
		}
		history[i] = int64(math.Round(v))
	}
	return history
}

func coefficientOfVariation(xs []int64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	mean := sum / float64(len(xs))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, x := range xs {
		d := float64(x) - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(xs))) / mean
}

// abcClass según el valor acumulado antes del ítem: A hasta 80%, B hasta 95%, resto C.
func abcClass(cumulativeBefore decimal.Decimal) string {
	switch {
	case cumulativeBefore.LessThan(shareA):
		return "A"
	case cumulativeBefore.LessThan(shareB):
		return "B"
	default:
		return "C"
	}
}

func xyzClass(cv float64) string {
	switch {
	case cv <= 0.5:
		return "X"
	case cv <= 1.0:
		return "Y"
	default:
		return "Z"
	}
}

func movingAverageForecast(history []int64, horizon int) []int64 {
	window := append([]int64(nil), history...)
	out := make([]int64, horizon)
	for i := range out {
		n := 3
		if len(window) < n {
			n = len(window)
		}
		var sum int64
		for _, v := range window[len(window)-n:] {
			sum += v
		}
		next := int64(math.Round(float64(sum) / float64(n)))
		out[i] = next
		window = append(window, next)
	}
	return out
}
