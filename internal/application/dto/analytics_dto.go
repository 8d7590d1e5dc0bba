package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulatedAnalyticsRequest parámetros para GET /api/analytics/simulated/abc-xyz.
type SimulatedAnalyticsRequest struct {
	Horizon int `query:"horizon"` // meses de pronóstico (default 3, max 12)
}

// SimulatedPartClassDTO clasificación ABC/XYZ de un repuesto con demanda generada al azar.
type SimulatedPartClassDTO struct {
	PartID        string          `json:"part_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	AnnualValue   decimal.Decimal `json:"annual_value"`
	ValueSharePct decimal.Decimal `json:"value_share_pct"`
	ABC           string          `json:"abc"`       // A|B|C por valor acumulado (80/95)
	DemandCV      float64         `json:"demand_cv"` // coeficiente de variación mensual
	XYZ           string          `json:"xyz"`       // X|Y|Z por variabilidad (0.5/1.0)
	History       []int64         `json:"history"`   // 12 meses simulados
	Forecast      []int64         `json:"forecast"`  // promedio móvil de 3 meses
}

// SimulatedAnalyticsDTO respuesta de la analítica simulada. Los números son aleatorios.
type SimulatedAnalyticsDTO struct {
	Simulated   bool                    `json:"simulated"`
	Seed        int64                   `json:"seed"`
	GeneratedAt time.Time               `json:"generated_at"`
	Horizon     int                     `json:"horizon"`
	Matrix      map[string]int          `json:"matrix"` // "AX" -> cantidad de repuestos
	Items       []SimulatedPartClassDTO `json:"items"`
}
