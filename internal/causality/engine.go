package causality

import (
	"fmt"
	"log/slog"
	"time"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

// AnalysisStore is the persistence surface the engine needs.
type AnalysisStore interface {
	ReadSentiment() ([]models.SentimentScore, error)
	ReadMargins() ([]models.MarginObservation, error)
	UpsertMerged(rows []models.MergedRow) error
	UpsertRollingCorr(points []models.CorrPoint) error
}

// Engine merges the sentiment and margin series, persists the merged view,
// and runs the bidirectional Granger analysis plus the rolling correlation.
type Engine struct {
	store AnalysisStore
	cfg   config.AnalysisConfig
}

func NewEngine(store AnalysisStore, cfg config.AnalysisConfig) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// Result summarizes one analysis run. Directions holds only the directions
// that produced a valid test.
type Result struct {
	MergedRows     int
	Directions     []DirectionResult
	CorrPoints     int
	Interpretation string
}

// Run executes the full analysis. A failure in one causal direction is
// logged and omitted; the other direction and the correlation step still
// run.
func (e *Engine) Run() (Result, error) {
	var res Result

	scores, err := e.store.ReadSentiment()
	if err != nil {
		return res, fmt.Errorf("reading sentiment: %w", err)
	}
	margins, err := e.store.ReadMargins()
	if err != nil {
		return res, fmt.Errorf("reading margins: %w", err)
	}
	if len(scores) == 0 || len(margins) == 0 {
		return res, fmt.Errorf("analysis needs both series: %d sentiment rows, %d margin rows", len(scores), len(margins))
	}

	merged := Align(scores, margins, e.cfg.ToleranceDays)
	if len(merged) == 0 {
		return res, fmt.Errorf("no sentiment rows aligned within %d days of a margin row", e.cfg.ToleranceDays)
	}
	if err := e.store.UpsertMerged(merged); err != nil {
		return res, fmt.Errorf("saving merged rows: %w", err)
	}
	res.MergedRows = len(merged)
	slog.Info("series aligned", "merged_rows", len(merged), "dropped", len(scores)-len(merged))

	dates := make([]time.Time, len(merged))
	sentiment := make([]float64, len(merged))
	spread := make([]float64, len(merged))
	for i, row := range merged {
		dates[i] = row.Date
		sentiment[i] = row.Compound
		spread[i] = row.CrackSpread
	}

	// Both directions pair compound sentiment with the crack spread; the
	// rolling correlation below uses the same pair.
	var sentimentLeads, marginLeads bool
	for _, dir := range []struct {
		cause, effect string
		causeSeries   []float64
		effectSeries  []float64
	}{
		{"sentiment", "margin", sentiment, spread},
		{"margin", "sentiment", spread, sentiment},
	} {
		lags, err := GrangerTest(dir.causeSeries, dir.effectSeries, e.cfg.MaxLag, e.cfg.Alpha)
		if err != nil {
			slog.Warn("granger direction skipped", "cause", dir.cause, "effect", dir.effect, "error", err)
			continue
		}
		result := DirectionResult{Cause: dir.cause, Effect: dir.effect, Lags: lags}
		res.Directions = append(res.Directions, result)
		if result.AnySignificant() {
			if dir.cause == "sentiment" {
				sentimentLeads = true
			} else {
				marginLeads = true
			}
		}
		for _, l := range lags {
			slog.Info("granger test",
				"cause", dir.cause,
				"effect", dir.effect,
				"lag", l.Lag,
				"f_stat", l.FStat,
				"p_value", l.PValue,
				"significant", l.Significant)
		}
	}

	res.Interpretation = interpret(sentimentLeads, marginLeads)
	slog.Info("causality interpretation", "conclusion", res.Interpretation)

	points := RollingCorrelation(dates, sentiment, spread, e.cfg.CorrWindow, e.cfg.CorrMinPeriod)
	if len(points) > 0 {
		if err := e.store.UpsertRollingCorr(points); err != nil {
			return res, fmt.Errorf("saving rolling correlation: %w", err)
		}
	}
	res.CorrPoints = len(points)
	slog.Info("analysis run complete",
		"merged_rows", res.MergedRows,
		"directions_tested", len(res.Directions),
		"corr_points", res.CorrPoints)
	return res, nil
}

func interpret(sentimentLeads, marginLeads bool) string {
	switch {
	case sentimentLeads && marginLeads:
		return "feedback: sentiment and margins Granger-cause each other"
	case sentimentLeads:
		return "sentiment leads margins"
	case marginLeads:
		return "margins lead sentiment"
	default:
		return "no Granger-causal relationship detected at any tested lag"
	}
}
