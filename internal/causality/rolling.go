package causality

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"crackwatch/internal/models"
)

// RollingCorrelation computes the trailing-window Pearson correlation of two
// aligned series. A point is emitted once minPeriods observations are
// available; windows with zero variance produce no point.
func RollingCorrelation(dates []time.Time, xs, ys []float64, window, minPeriods int) []models.CorrPoint {
	var points []models.CorrPoint
	for i := range xs {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		if i-start+1 < minPeriods {
			continue
		}

		corr := stat.Correlation(xs[start:i+1], ys[start:i+1], nil)
		if math.IsNaN(corr) {
			continue
		}
		points = append(points, models.CorrPoint{Date: dates[i], Corr: corr})
	}
	return points
}
