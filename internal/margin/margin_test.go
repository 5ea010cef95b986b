package margin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testEngine() *Engine {
	return NewEngine(config.CostConfig{NatGasIntensity: 0.45, FixedOpex: 6.00})
}

func TestCompute_CrackSpreadFormula(t *testing.T) {
	rows := testEngine().Compute([]models.RawObservation{{
		Date:       day(0),
		CrudeOil:   80,
		Gasoline:   2.50,
		HeatingOil: 2.60,
		NaturalGas: 3.0,
	}})
	require.Len(t, rows, 1)

	// ((2*2.50*42 + 1*2.60*42) - 3*80) / 3 = ((210 + 109.2) - 240) / 3
	assert.InDelta(t, 26.4, rows[0].CrackSpread, 1e-9)
	assert.InDelta(t, 105.0, rows[0].GasolineBbl, 1e-9)
	assert.InDelta(t, 109.2, rows[0].HeatingOilBbl, 1e-9)

	// Net = gross - (3.0*0.45 + 6.00)
	assert.InDelta(t, 1.35, rows[0].VariableOpex, 1e-9)
	assert.InDelta(t, 7.35, rows[0].TotalOpex, 1e-9)
	assert.InDelta(t, 26.4-7.35, rows[0].NetMargin, 1e-9)
}

func TestCompute_MissingNaturalGasFallsBackToZero(t *testing.T) {
	rows := testEngine().Compute([]models.RawObservation{{
		Date:       day(0),
		CrudeOil:   80,
		Gasoline:   2.50,
		HeatingOil: 2.60,
		NaturalGas: 0,
	}})
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].VariableOpex)
	assert.InDelta(t, 6.00, rows[0].TotalOpex, 1e-9)
	assert.InDelta(t, rows[0].CrackSpread-6.00, rows[0].NetMargin, 1e-9)
}

func TestCompute_MovingAverageUndefinedBeforeWindow(t *testing.T) {
	raw := make([]models.RawObservation, 40)
	for i := range raw {
		raw[i] = models.RawObservation{
			Date:       day(i),
			CrudeOil:   80 + float64(i),
			Gasoline:   2.50,
			HeatingOil: 2.60,
			NaturalGas: 3.0,
		}
	}

	rows := testEngine().Compute(raw)
	require.Len(t, rows, 40)

	for i := 0; i < 29; i++ {
		assert.Nilf(t, rows[i].SpreadMA30, "row %d must have no moving average", i)
		assert.Nilf(t, rows[i].NetMarginMA30, "row %d must have no moving average", i)
	}

	// Row 29 averages rows 0..29.
	require.NotNil(t, rows[29].SpreadMA30)
	var want float64
	for i := 0; i <= 29; i++ {
		want += rows[i].CrackSpread
	}
	want /= 30
	assert.InDelta(t, want, *rows[29].SpreadMA30, 1e-9)

	// Row 35 averages rows 6..35.
	require.NotNil(t, rows[35].NetMarginMA30)
	want = 0
	for i := 6; i <= 35; i++ {
		want += rows[i].NetMargin
	}
	want /= 30
	assert.InDelta(t, want, *rows[35].NetMarginMA30, 1e-9)
}

func TestCompute_Deterministic(t *testing.T) {
	raw := []models.RawObservation{
		{Date: day(0), CrudeOil: 80, Gasoline: 2.5, HeatingOil: 2.6, NaturalGas: 3},
		{Date: day(1), CrudeOil: 81, Gasoline: 2.4, HeatingOil: 2.7, NaturalGas: 2.8},
	}
	first := testEngine().Compute(raw)
	second := testEngine().Compute(raw)
	assert.Equal(t, first, second)
}
