package scrape

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

// datePhrase matches prose dates like "August 24, 2024" near archive links.
var datePhrase = regexp.MustCompile(`[A-Z][a-z]+ \d{1,2}, \d{4}`)

// ArchiveSource scrapes the open-ended daily article archive: it crawls one
// listing page, follows links whose text or URL matches the domain keywords,
// and recovers each article's publication date from the listing or the
// article body. Undated articles and articles outside the allowed years are
// discarded.
type ArchiveSource struct {
	fetcher *Fetcher
	cfg     config.ScrapeConfig
	years   map[int]bool

	sleep func(time.Duration)
}

func NewArchiveSource(fetcher *Fetcher, cfg config.ScrapeConfig, now time.Time) *ArchiveSource {
	years := make(map[int]bool)
	if len(cfg.AllowedYears) > 0 {
		for _, y := range cfg.AllowedYears {
			years[y] = true
		}
	} else {
		years[now.Year()] = true
		years[now.Year()-1] = true
	}
	return &ArchiveSource{fetcher: fetcher, cfg: cfg, years: years, sleep: time.Sleep}
}

type candidate struct {
	url  string
	date time.Time // zero when the listing carried no usable date
}

// Scrape crawls the archive listing and fetches every matching article not
// already stored. Per-article failures are logged and skipped.
func (s *ArchiveSource) Scrape(existing map[time.Time]bool) ([]models.Report, Stats) {
	var reports []models.Report
	var stats Stats

	listing, err := s.fetcher.Get(s.cfg.ArchiveURL)
	if err != nil {
		slog.Error("archive listing fetch failed", "url", s.cfg.ArchiveURL, "error", err)
		stats.Failed++
		return nil, stats
	}

	candidates, err := s.extractCandidates(listing)
	if err != nil {
		slog.Error("archive listing parse failed", "error", err)
		stats.Failed++
		return nil, stats
	}
	slog.Info("archive candidates discovered", "count", len(candidates))

	for _, c := range candidates {
		// When the listing already carried a date, filter before fetching.
		if !c.date.IsZero() && (!s.years[c.date.Year()] || existing[c.date]) {
			stats.Skipped++
			continue
		}

		body, err := s.fetcher.Get(c.url)
		if err != nil {
			slog.Warn("article fetch failed", "url", c.url, "error", err)
			stats.Failed++
			s.sleep(s.cfg.FetchDelay.Duration)
			continue
		}

		date := c.date
		if date.IsZero() {
			date = articleDate(body)
		}
		if date.IsZero() {
			slog.Info("article date unresolvable, discarding", "url", c.url)
			stats.Failed++
			s.sleep(s.cfg.FetchDelay.Duration)
			continue
		}
		if !s.years[date.Year()] {
			stats.Skipped++
			s.sleep(s.cfg.FetchDelay.Duration)
			continue
		}
		if existing[date] {
			stats.Skipped++
			s.sleep(s.cfg.FetchDelay.Duration)
			continue
		}

		text, wordCount, err := ExtractText(body)
		if err != nil || wordCount == 0 {
			slog.Warn("article yielded no text", "url", c.url)
			stats.Failed++
			s.sleep(s.cfg.FetchDelay.Duration)
			continue
		}

		reports = append(reports, models.Report{
			Date:      date,
			URL:       c.url,
			RawText:   text,
			WordCount: wordCount,
		})
		stats.Found++
		slog.Info("article saved", "date", date.Format(models.DateFormat), "words", wordCount)
		s.sleep(s.cfg.FetchDelay.Duration)
	}

	return reports, stats
}

// extractCandidates pulls matching, deduplicated article links from the
// listing page, with whatever publication date sits next to each link.
func (s *ArchiveSource) extractCandidates(listing []byte) ([]candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(listing))
	if err != nil {
		return nil, fmt.Errorf("parsing listing: %w", err)
	}

	var candidates []candidate
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		hrefLower := strings.ToLower(href)
		textLower := strings.ToLower(strings.TrimSpace(a.Text()))

		if !strings.Contains(hrefLower, "detail.php") {
			return
		}
		matched := false
		for _, kw := range s.cfg.LinkKeywords {
			if strings.Contains(hrefLower, kw) || strings.Contains(textLower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		fullURL := href
		if !strings.HasPrefix(hrefLower, "http") {
			fullURL = s.cfg.ArchiveBaseURL + href
		}
		if seen[fullURL] {
			return
		}
		seen[fullURL] = true

		c := candidate{url: fullURL}
		if m := datePhrase.FindString(a.Parent().Text()); m != "" {
			if d, err := dateparse.ParseAny(m); err == nil {
				c.date = models.Day(d)
			}
		}
		candidates = append(candidates, c)
	})

	return candidates, nil
}

// articleDate recovers a publication date from inside the article body.
func articleDate(body []byte) time.Time {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return time.Time{}
	}

	if el := doc.Find("div.date, span.date").First(); el.Length() > 0 {
		if d, err := dateparse.ParseAny(strings.TrimSpace(el.Text())); err == nil {
			return models.Day(d)
		}
	}
	if m := datePhrase.FindString(doc.Text()); m != "" {
		if d, err := dateparse.ParseAny(m); err == nil {
			return models.Day(d)
		}
	}
	return time.Time{}
}
