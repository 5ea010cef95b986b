package scrape

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

// WeeklySource scrapes the historical weekly report archive: one candidate
// date per calendar week (Wednesdays) over a fixed range, each addressed by
// a deterministic URL derived from the date.
type WeeklySource struct {
	fetcher *Fetcher
	cfg     config.ScrapeConfig

	sleep func(time.Duration)
}

func NewWeeklySource(fetcher *Fetcher, cfg config.ScrapeConfig) *WeeklySource {
	return &WeeklySource{fetcher: fetcher, cfg: cfg, sleep: time.Sleep}
}

// Stats counts per-source candidate outcomes.
type Stats struct {
	Found   int
	Skipped int
	Failed  int
}

func (s *WeeklySource) url(d time.Time) string {
	return fmt.Sprintf("%s/%d/%s/includes/analysis_print.php",
		s.cfg.WeeklyBaseURL, d.Year(), d.Format("060102"))
}

// Scrape walks every Wednesday in the configured range, skipping dates
// already stored. Per-date failures are logged and skipped, never fatal.
func (s *WeeklySource) Scrape(existing map[time.Time]bool) ([]models.Report, Stats) {
	var reports []models.Report
	var stats Stats

	start, err := time.ParseInLocation(models.DateFormat, s.cfg.WeeklyStart, time.UTC)
	if err != nil {
		slog.Error("invalid weekly start date", "value", s.cfg.WeeklyStart, "error", err)
		return nil, stats
	}
	end, err := time.ParseInLocation(models.DateFormat, s.cfg.WeeklyEnd, time.UTC)
	if err != nil {
		slog.Error("invalid weekly end date", "value", s.cfg.WeeklyEnd, "error", err)
		return nil, stats
	}

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Wednesday {
			continue
		}
		if existing[d] {
			stats.Skipped++
			continue
		}

		url := s.url(d)
		body, err := s.fetcher.Get(url)
		if err != nil {
			// A 404 means no report was published that week, a normal
			// outcome for this source, not an error.
			if errors.Is(err, ErrNotFound) {
				slog.Info("weekly report not published", "date", d.Format(models.DateFormat))
				stats.Skipped++
			} else {
				slog.Warn("weekly report fetch failed", "date", d.Format(models.DateFormat), "error", err)
				stats.Failed++
			}
			s.sleep(s.cfg.FetchDelay.Duration)
			continue
		}

		text, wordCount, err := ExtractText(body)
		if err != nil || wordCount == 0 {
			slog.Warn("weekly report yielded no text", "date", d.Format(models.DateFormat))
			stats.Failed++
			s.sleep(s.cfg.FetchDelay.Duration)
			continue
		}

		reports = append(reports, models.Report{
			Date:      d,
			URL:       url,
			RawText:   text,
			WordCount: wordCount,
		})
		stats.Found++
		slog.Info("weekly report saved", "date", d.Format(models.DateFormat), "words", wordCount)
		s.sleep(s.cfg.FetchDelay.Duration)
	}

	return reports, stats
}
