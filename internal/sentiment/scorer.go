package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonreiter/govader"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

// ScoreStore is the persistence surface the scorer needs.
type ScoreStore interface {
	ReadReports() ([]models.Report, error)
	SentimentDates() (map[time.Time]bool, error)
	UpsertSentiment(scores []models.SentimentScore) error
}

// Labeler is an optional external classifier consulted per report. Its
// output is logged for comparison against the lexicon scores but never
// persisted, so a broken endpoint cannot corrupt the pipeline.
type Labeler interface {
	Label(ctx context.Context, text string) (string, float64, error)
}

// Scorer runs the sentiment job: every stored report without a score gets a
// VADER polarity distribution, a domain keyword net-score and a topic from
// an LDA model fitted over the unscored batch.
type Scorer struct {
	store      ScoreStore
	cfg        config.NLPConfig
	analyzer   *govader.SentimentIntensityAnalyzer
	normalizer *Normalizer
	topics     *TopicModel
	labeler    Labeler
}

func NewScorer(store ScoreStore, cfg config.NLPConfig, labeler Labeler) (*Scorer, error) {
	normalizer, err := NewNormalizer(cfg.DomainStopwords)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		store:      store,
		cfg:        cfg,
		analyzer:   govader.NewSentimentIntensityAnalyzer(),
		normalizer: normalizer,
		topics:     NewTopicModel(cfg),
		labeler:    labeler,
	}, nil
}

// Result summarizes one scoring run.
type Result struct {
	Scored  int
	Skipped int
}

// Run scores every unscored report as one batch. Already-scored dates are
// never touched again; the topic model only ever sees the new documents.
func (s *Scorer) Run(ctx context.Context) (Result, error) {
	var res Result

	reports, err := s.store.ReadReports()
	if err != nil {
		return res, fmt.Errorf("reading reports: %w", err)
	}
	scored, err := s.store.SentimentDates()
	if err != nil {
		return res, fmt.Errorf("reading scored dates: %w", err)
	}

	var pending []models.Report
	for _, r := range reports {
		if scored[r.Date] {
			res.Skipped++
			continue
		}
		pending = append(pending, r)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Date.Before(pending[j].Date) })

	if len(pending) == 0 {
		slog.Info("no unscored reports", "skipped", res.Skipped)
		return res, nil
	}
	slog.Info("scoring reports", "pending", len(pending), "skipped", res.Skipped)

	docs := make([][]string, len(pending))
	for i, r := range pending {
		docs[i] = s.normalizer.Tokens(r.RawText)
	}
	assignments, err := s.topics.Fit(docs)
	if err != nil {
		return res, err
	}

	scores := make([]models.SentimentScore, len(pending))
	for i, r := range pending {
		polarity := s.analyzer.PolarityScores(r.RawText)
		scores[i] = models.SentimentScore{
			Date:            r.Date,
			Compound:        polarity.Compound,
			Positive:        polarity.Positive,
			Negative:        polarity.Negative,
			Neutral:         polarity.Neutral,
			NetKeywordScore: NetKeywordScore(r.RawText, r.WordCount, s.cfg.BullishTerms, s.cfg.BearishTerms),
			DominantTopic:   assignments[i].Topic,
			TopicProb:       assignments[i].Prob,
		}

		if s.labeler != nil {
			label, confidence, err := s.labeler.Label(ctx, r.RawText)
			if err != nil {
				slog.Warn("external classifier failed", "date", r.Date.Format(models.DateFormat), "error", err)
			} else {
				slog.Info("external classifier label",
					"date", r.Date.Format(models.DateFormat),
					"label", label,
					"confidence", confidence,
					"vader_compound", polarity.Compound)
			}
		}
	}

	if err := s.store.UpsertSentiment(scores); err != nil {
		return res, fmt.Errorf("saving sentiment scores: %w", err)
	}
	res.Scored = len(scores)
	slog.Info("sentiment run complete", "scored", res.Scored, "skipped", res.Skipped)
	return res, nil
}
