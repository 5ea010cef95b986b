package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

// instrumentOrder lists the logical instruments the margin math requires.
// All six must resolve to a provider symbol in the configuration.
var instrumentOrder = []string{
	"crude_oil", "gasoline", "heating_oil", "natural_gas", "valero", "phillips66",
}

// RawSink is the storage dependency of the Fetcher.
type RawSink interface {
	UpsertRaw(rows []models.RawObservation) error
}

// Fetcher pulls one closing series per configured instrument and joins them
// into wide raw market rows. The fetch is all-or-nothing: a single symbol
// exhausting its retries fails the whole run, because every downstream
// derived row needs all six series aligned.
type Fetcher struct {
	source PriceSource
	sink   RawSink
	cfg    config.MarketConfig

	sleep func(time.Duration)
}

func NewFetcher(source PriceSource, sink RawSink, cfg config.MarketConfig) *Fetcher {
	return &Fetcher{source: source, sink: sink, cfg: cfg, sleep: time.Sleep}
}

// Result summarizes one fetch run.
type Result struct {
	SymbolsFetched int
	RowsSaved      int
}

// Run fetches all instruments for the given lookback (falling back to the
// configured one when empty), joins, gap-fills, and upserts the result.
func (f *Fetcher) Run(ctx context.Context, lookback string) (*Result, error) {
	if lookback == "" {
		lookback = f.cfg.Lookback
	}
	slog.Info("fetching market data", "lookback", lookback, "instruments", len(instrumentOrder))

	series := make(map[string]map[time.Time]float64, len(instrumentOrder))
	for _, name := range instrumentOrder {
		symbol, ok := f.cfg.Symbols[name]
		if !ok {
			return nil, fmt.Errorf("no symbol configured for instrument %s", name)
		}
		closes, err := f.fetchWithRetry(ctx, name, symbol, lookback)
		if err != nil {
			return nil, fmt.Errorf("fetching %s (%s): %w", name, symbol, err)
		}
		byDate := make(map[time.Time]float64, len(closes))
		for _, c := range closes {
			byDate[models.Day(c.Date)] = c.Close
		}
		series[name] = byDate
		slog.Info("fetched instrument", "instrument", name, "symbol", symbol, "rows", len(closes))
	}

	rows := join(series, f.cfg.FillLimitDays)
	if err := f.sink.UpsertRaw(rows); err != nil {
		return nil, fmt.Errorf("upserting raw rows: %w", err)
	}

	slog.Info("market data saved", "rows", len(rows))
	return &Result{SymbolsFetched: len(instrumentOrder), RowsSaved: len(rows)}, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, name, symbol, lookback string) ([]ClosePrice, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.Retries; attempt++ {
		closes, err := f.source.DailyCloses(ctx, symbol, lookback)
		if err == nil {
			return closes, nil
		}
		lastErr = err
		slog.Warn("fetch attempt failed",
			"instrument", name, "symbol", symbol, "attempt", attempt, "error", err)
		if attempt < f.cfg.Retries {
			f.sleep(f.cfg.RetryDelay.Duration)
		}
	}
	return nil, lastErr
}

// join outer-joins the per-instrument series on date, forward-fills each
// instrument for gaps of up to fillLimit rows (exchange holiday mismatches),
// then drops any date still missing an instrument.
func join(series map[string]map[time.Time]float64, fillLimit int) []models.RawObservation {
	dateSet := make(map[time.Time]bool)
	for _, byDate := range series {
		for d := range byDate {
			dateSet[d] = true
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// Forward fill per instrument over the unioned date axis.
	filled := make(map[string]map[time.Time]float64, len(series))
	for name, byDate := range series {
		out := make(map[time.Time]float64, len(byDate))
		var last float64
		haveLast := false
		gap := 0
		for _, d := range dates {
			if v, ok := byDate[d]; ok {
				out[d] = v
				last, haveLast, gap = v, true, 0
				continue
			}
			gap++
			if haveLast && gap <= fillLimit {
				out[d] = last
			}
		}
		filled[name] = out
	}

	var rows []models.RawObservation
	for _, d := range dates {
		vals := make(map[string]float64, len(instrumentOrder))
		complete := true
		for _, name := range instrumentOrder {
			v, ok := filled[name][d]
			if !ok {
				complete = false
				break
			}
			vals[name] = v
		}
		if !complete {
			continue
		}
		rows = append(rows, models.RawObservation{
			Date:       d,
			CrudeOil:   vals["crude_oil"],
			Gasoline:   vals["gasoline"],
			HeatingOil: vals["heating_oil"],
			NaturalGas: vals["natural_gas"],
			Valero:     vals["valero"],
			Phillips66: vals["phillips66"],
		})
	}
	return rows
}
