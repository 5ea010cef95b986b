// Package margin derives refining economics from raw market rows: the 3:2:1
// crack spread, operating costs, net margin and their moving averages. It is
// a pure function of its input; storage happens in the calling job.
package margin

import (
	"log/slog"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

const (
	// GallonsPerBarrel converts $/gal product prices to $/bbl.
	GallonsPerBarrel = 42.0
	// maWindow is the trailing window of the moving averages.
	maWindow = 30
)

// Engine computes derived margin rows under a fixed cost assumption set.
type Engine struct {
	costs config.CostConfig
}

func NewEngine(costs config.CostConfig) *Engine {
	return &Engine{costs: costs}
}

// Compute derives a margin row per raw row. Input must be sorted by date
// ascending (the store reads it that way); the moving averages are nil for
// the first maWindow-1 rows. A zero natural-gas price is treated as missing
// data: variable cost falls back to zero with a warning, never an error.
func (e *Engine) Compute(raw []models.RawObservation) []models.MarginObservation {
	out := make([]models.MarginObservation, 0, len(raw))
	missingGas := 0

	for _, r := range raw {
		m := models.MarginObservation{RawObservation: r}

		m.GasolineBbl = r.Gasoline * GallonsPerBarrel
		m.HeatingOilBbl = r.HeatingOil * GallonsPerBarrel

		productValue := 2*m.GasolineBbl + 1*m.HeatingOilBbl
		inputCost := 3 * r.CrudeOil
		m.CrackSpread = (productValue - inputCost) / 3

		if r.NaturalGas > 0 {
			m.VariableOpex = r.NaturalGas * e.costs.NatGasIntensity
		} else {
			m.VariableOpex = 0
			missingGas++
		}
		m.TotalOpex = m.VariableOpex + e.costs.FixedOpex
		m.NetMargin = m.CrackSpread - m.TotalOpex

		out = append(out, m)
	}

	if missingGas > 0 {
		slog.Warn("natural gas price missing, assuming zero variable energy cost",
			"rows", missingGas)
	}

	// Trailing simple moving averages over the row sequence.
	for i := range out {
		if i < maWindow-1 {
			continue
		}
		var spreadSum, netSum float64
		for j := i - maWindow + 1; j <= i; j++ {
			spreadSum += out[j].CrackSpread
			netSum += out[j].NetMargin
		}
		spreadMA := spreadSum / maWindow
		netMA := netSum / maWindow
		out[i].SpreadMA30 = &spreadMA
		out[i].NetMarginMA30 = &netMA
	}

	return out
}
