package scrape

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

const reportBody = `<html><body><div class="pagemain">
<p>Gasoline inventories drew down for a third consecutive week as refinery utilization climbed above ninety percent nationwide.</p>
</div></body></html>`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testScrapeConfig(srvURL string) config.ScrapeConfig {
	cfg := config.DefaultConfig().Scrape
	cfg.WeeklyBaseURL = srvURL + "/petroleum/weekly/archive"
	cfg.WeeklyStart = "2022-01-01"
	cfg.WeeklyEnd = "2022-01-14" // two Wednesdays: Jan 5, Jan 12
	cfg.ArchiveURL = srvURL + "/todayinenergy/archive.php"
	cfg.ArchiveBaseURL = srvURL + "/todayinenergy/"
	cfg.AllowedYears = []int{2024, 2025}
	cfg.FetchDelay = config.Duration{Duration: 0}
	return cfg
}

type memStore struct {
	dates    map[time.Time]bool
	upserted []models.Report
}

func (m *memStore) ReportDates() (map[time.Time]bool, error) {
	if m.dates == nil {
		return map[time.Time]bool{}, nil
	}
	return m.dates, nil
}

func (m *memStore) UpsertReports(rows []models.Report) error {
	m.upserted = rows
	return nil
}

func TestWeeklySource_FetchesAndSkips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/petroleum/weekly/archive/2022/220105/includes/analysis_print.php":
			fmt.Fprint(w, reportBody)
		case "/petroleum/weekly/archive/2022/220112/includes/analysis_print.php":
			fmt.Fprint(w, reportBody)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := testScrapeConfig(srv.URL)
	src := NewWeeklySource(newTestFetcher(cfg.Retries), cfg)
	src.sleep = func(time.Duration) {}

	existing := map[time.Time]bool{day(2022, 1, 12): true}
	reports, stats := src.Scrape(existing)

	require.Len(t, reports, 1, "already-stored dates must be skipped before fetching")
	assert.Equal(t, day(2022, 1, 5), reports[0].Date)
	assert.Greater(t, reports[0].WordCount, 10)
	assert.Equal(t, 1, stats.Found)
	assert.Equal(t, 1, stats.Skipped)
}

func TestWeeklySource_MissingWeekIsSkippedNotFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testScrapeConfig(srv.URL)
	src := NewWeeklySource(newTestFetcher(cfg.Retries), cfg)
	src.sleep = func(time.Duration) {}

	reports, stats := src.Scrape(map[time.Time]bool{})
	assert.Empty(t, reports)
	assert.Equal(t, 2, stats.Skipped, "an unpublished week is a normal miss")
	assert.Zero(t, stats.Failed)
}

func TestWeeklySource_ServerErrorCountsAsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testScrapeConfig(srv.URL)
	src := NewWeeklySource(newTestFetcher(0), cfg)
	src.sleep = func(time.Duration) {}

	reports, stats := src.Scrape(map[time.Time]bool{})
	assert.Empty(t, reports)
	assert.Equal(t, 2, stats.Failed)
	assert.Zero(t, stats.Skipped)
}

func TestWeeklySource_EmptyDocumentNotStored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><div class="pagemain"><p>Nav only.</p></div></body></html>`)
	}))
	defer srv.Close()

	cfg := testScrapeConfig(srv.URL)
	src := NewWeeklySource(newTestFetcher(cfg.Retries), cfg)
	src.sleep = func(time.Duration) {}

	reports, stats := src.Scrape(map[time.Time]bool{})
	assert.Empty(t, reports, "a zero-word document is a scrape failure, never stored")
	assert.Equal(t, 2, stats.Failed)
}

func archiveHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/todayinenergy/archive.php":
			fmt.Fprint(w, `<html><body>
				<div><span>August 14, 2024</span> <a href="detail.php?id=62041">Crude oil refinery runs rise</a></div>
				<div><a href="detail.php?id=62041">Crude oil refinery runs rise</a></div>
				<div><a href="detail.php?id=62099">Petroleum product exports</a></div>
				<div><span>March 3, 2021</span> <a href="detail.php?id=50000">Old crude article</a></div>
				<div><a href="detail.php?id=62150">Electricity generation mix</a></div>
				<div><a href="other.php?id=1">Crude but wrong page type</a></div>
			</body></html>`)
		case "/todayinenergy/detail.php":
			switch r.URL.Query().Get("id") {
			case "62041":
				fmt.Fprint(w, reportBody)
			case "62099":
				fmt.Fprint(w, `<html><body><span class="date">September 3, 2024</span>
					<article><p>Petroleum product exports reached a record high driven by strong distillate demand from Latin America this quarter.</p></article>
					</body></html>`)
			case "50000":
				fmt.Fprint(w, reportBody)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestArchiveSource_KeywordFilterDedupAndDates(t *testing.T) {
	srv := httptest.NewServer(archiveHandler(t))
	defer srv.Close()

	cfg := testScrapeConfig(srv.URL)
	src := NewArchiveSource(newTestFetcher(cfg.Retries), cfg, day(2025, 6, 1))
	src.sleep = func(time.Duration) {}

	reports, stats := src.Scrape(map[time.Time]bool{})

	require.Len(t, reports, 2)
	assert.Equal(t, day(2024, 8, 14), reports[0].Date, "date recovered from listing metadata")
	assert.Equal(t, day(2024, 9, 3), reports[1].Date, "date recovered from article body")
	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 1, stats.Skipped, "2021 article is outside the allowed years")
}

func TestArchiveSource_DefaultYearsFromClock(t *testing.T) {
	cfg := config.DefaultConfig().Scrape
	cfg.AllowedYears = nil
	src := NewArchiveSource(newTestFetcher(0), cfg, day(2026, 3, 1))
	assert.True(t, src.years[2026])
	assert.True(t, src.years[2025])
	assert.False(t, src.years[2024])
}

func TestScraper_MergesAndDeduplicatesByDate(t *testing.T) {
	srv := httptest.NewServer(archiveHandler(t))
	defer srv.Close()

	cfg := testScrapeConfig(srv.URL)
	weeklySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer weeklySrv.Close()
	cfg.WeeklyBaseURL = weeklySrv.URL + "/petroleum/weekly/archive"

	fetcher := newTestFetcher(cfg.Retries)
	weekly := NewWeeklySource(fetcher, cfg)
	weekly.sleep = func(time.Duration) {}
	archive := NewArchiveSource(fetcher, cfg, day(2025, 6, 1))
	archive.sleep = func(time.Duration) {}

	st := &memStore{}
	res, err := NewScraper(weekly, archive, st).Run()
	require.NoError(t, err)

	assert.Equal(t, 2, res.Saved)
	require.Len(t, st.upserted, 2)
	assert.True(t, st.upserted[0].Date.Before(st.upserted[1].Date), "merged batch is date ordered")
}
