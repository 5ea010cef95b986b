// Package models defines the row types persisted by the pipeline. Every
// entity is keyed by a single date; dates are stored at day precision.
package models

import "time"

// DateFormat is the storage representation of all date keys.
const DateFormat = "2006-01-02"

// RawObservation is one trading date's closing prices for the six
// instruments the margin math requires.
type RawObservation struct {
	Date       time.Time
	CrudeOil   float64
	Gasoline   float64 // $/gal
	HeatingOil float64 // $/gal
	NaturalGas float64
	Valero     float64
	Phillips66 float64
}

// MarginObservation is a fully derived refining-margin row. The moving
// averages are nil for the first 29 rows of a series, never zero.
type MarginObservation struct {
	RawObservation

	GasolineBbl   float64
	HeatingOilBbl float64
	CrackSpread   float64
	VariableOpex  float64
	TotalOpex     float64
	NetMargin     float64
	SpreadMA30    *float64
	NetMarginMA30 *float64
}

// Report is one scraped commentary document. Immutable once stored.
type Report struct {
	Date      time.Time
	URL       string
	RawText   string
	WordCount int
}

// SentimentScore is the per-report scoring output: VADER distribution,
// domain keyword net-score and the batch LDA topic assignment.
type SentimentScore struct {
	Date            time.Time
	Compound        float64
	Positive        float64
	Negative        float64
	Neutral         float64
	NetKeywordScore float64
	DominantTopic   int
	TopicProb       float64
}

// MergedRow joins a sentiment score to the nearest margin observation
// within the alignment tolerance.
type MergedRow struct {
	SentimentScore

	TradeDate   time.Time
	CrackSpread float64
	SpreadMA30  *float64
	NetMargin   float64
}

// CorrPoint is one rolling-correlation observation.
type CorrPoint struct {
	Date time.Time
	Corr float64
}

// Day truncates t to day precision in UTC, the key resolution of every table.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
