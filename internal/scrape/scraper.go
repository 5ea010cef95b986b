package scrape

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"crackwatch/internal/models"
)

// ReportStore is the storage dependency of the Scraper.
type ReportStore interface {
	ReportDates() (map[time.Time]bool, error)
	UpsertReports(rows []models.Report) error
}

// Scraper runs both sources against the set of already-stored dates,
// deduplicates by date and writes everything in one upsert.
type Scraper struct {
	weekly  *WeeklySource
	archive *ArchiveSource
	store   ReportStore
}

func NewScraper(weekly *WeeklySource, archive *ArchiveSource, store ReportStore) *Scraper {
	return &Scraper{weekly: weekly, archive: archive, store: store}
}

// Result summarizes one scrape run across both sources.
type Result struct {
	Saved   int
	Skipped int
	Failed  int
}

// Run scrapes both sources and upserts the merged, date-deduplicated batch.
// Individual documents failing is normal operation; only storage errors are
// fatal.
func (s *Scraper) Run() (*Result, error) {
	existing, err := s.store.ReportDates()
	if err != nil {
		return nil, fmt.Errorf("loading existing report dates: %w", err)
	}
	slog.Info("scraping commentary sources", "existing_dates", len(existing))

	weeklyReports, weeklyStats := s.weekly.Scrape(existing)
	archiveReports, archiveStats := s.archive.Scrape(existing)

	// Deduplicate by date, last write wins (archive articles override weekly
	// reports landing on the same date).
	byDate := make(map[time.Time]models.Report)
	for _, r := range append(weeklyReports, archiveReports...) {
		byDate[r.Date] = r
	}
	merged := make([]models.Report, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	if err := s.store.UpsertReports(merged); err != nil {
		return nil, fmt.Errorf("upserting reports: %w", err)
	}

	res := &Result{
		Saved:   len(merged),
		Skipped: weeklyStats.Skipped + archiveStats.Skipped,
		Failed:  weeklyStats.Failed + archiveStats.Failed,
	}
	slog.Info("scrape complete",
		"saved", res.Saved, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}
