// Package causality aligns sentiment scores with derived margin rows and
// runs the lead/lag analysis between the two series.
package causality

import (
	"sort"
	"time"

	"crackwatch/internal/models"
)

// Align joins every sentiment score to the margin observation with the
// nearest trade date within the tolerance. Ties between an earlier and a
// later candidate go to the earlier date. Scores with no margin row inside
// the tolerance are dropped.
func Align(scores []models.SentimentScore, margins []models.MarginObservation, toleranceDays int) []models.MergedRow {
	if len(scores) == 0 || len(margins) == 0 {
		return nil
	}

	sorted := make([]models.MarginObservation, len(margins))
	copy(sorted, margins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	tolerance := time.Duration(toleranceDays) * 24 * time.Hour

	var merged []models.MergedRow
	for _, score := range scores {
		m, ok := nearest(sorted, score.Date, tolerance)
		if !ok {
			continue
		}
		merged = append(merged, models.MergedRow{
			SentimentScore: score,
			TradeDate:      m.Date,
			CrackSpread:    m.CrackSpread,
			SpreadMA30:     m.SpreadMA30,
			NetMargin:      m.NetMargin,
		})
	}
	return merged
}

func nearest(sorted []models.MarginObservation, date time.Time, tolerance time.Duration) (models.MarginObservation, bool) {
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Date.Before(date) })

	var best models.MarginObservation
	bestGap := tolerance + 1
	// Earlier candidate first so that ties resolve to the earlier date.
	if i > 0 {
		if gap := date.Sub(sorted[i-1].Date); gap <= tolerance {
			best, bestGap = sorted[i-1], gap
		}
	}
	if i < len(sorted) {
		if gap := sorted[i].Date.Sub(date); gap <= tolerance && gap < bestGap {
			best, bestGap = sorted[i], gap
		}
	}
	return best, bestGap <= tolerance
}
