package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crackwatch/internal/config"
	"crackwatch/internal/models"
)

func testNLPConfig() config.NLPConfig {
	return config.NLPConfig{
		BullishTerms:    []string{"tight supply", "inventory draw"},
		BearishTerms:    []string{"oversupply", "weak demand"},
		DomainStopwords: []string{"oil", "petroleum"},
		Topics:          2,
		MaxVocabulary:   1000,
		MinDocFreq:      2,
		MaxDocFreqRatio: 0.95,
	}
}

func TestNetKeywordScore(t *testing.T) {
	bullish := []string{"tight supply", "inventory draw"}
	bearish := []string{"oversupply"}

	text := "Tight supply persisted and another inventory draw was reported, despite fears of oversupply."
	score := NetKeywordScore(text, 14, bullish, bearish)
	assert.InDelta(t, (2.0-1.0)/14.0, score, 1e-12)

	assert.Zero(t, NetKeywordScore("", 0, bullish, bearish))
	assert.Zero(t, NetKeywordScore("no matches here", 3, nil, nil))
}

func TestNormalizerTokens(t *testing.T) {
	n, err := NewNormalizer([]string{"oil"})
	require.NoError(t, err)

	tokens := n.Tokens("The refineries processed 1,200 barrels of Oil.")
	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "of")
	assert.NotContains(t, tokens, "oil")
	assert.Contains(t, tokens, "refinery")
	assert.Contains(t, tokens, "barrel")
}

func TestTopicModelAssignsEveryDocument(t *testing.T) {
	tm := NewTopicModel(testNLPConfig())

	docs := [][]string{
		{"refinery", "outage", "maintenance", "refinery", "outage"},
		{"refinery", "outage", "turnaround", "maintenance"},
		{"refinery", "maintenance", "outage", "turnaround"},
		{"gasoline", "demand", "export", "gasoline", "demand"},
		{"gasoline", "export", "demand", "shipment"},
		{"gasoline", "demand", "shipment", "export"},
	}

	assignments, err := tm.Fit(docs)
	require.NoError(t, err)
	require.Len(t, assignments, len(docs))
	for _, a := range assignments {
		assert.GreaterOrEqual(t, a.Topic, 0)
		assert.Less(t, a.Topic, 2)
		assert.Greater(t, a.Prob, 0.0)
	}
}

func TestTopicModelEmptyVocabulary(t *testing.T) {
	tm := NewTopicModel(testNLPConfig())

	// Every term appears in exactly one document, below the document
	// frequency floor.
	_, err := tm.Fit([][]string{
		{"alpha", "bravo"},
		{"charlie", "delta"},
	})
	assert.Error(t, err)
}

func TestTopicModelEmptyBatch(t *testing.T) {
	tm := NewTopicModel(testNLPConfig())

	assignments, err := tm.Fit(nil)
	require.NoError(t, err)
	assert.Empty(t, assignments)
}

type memScoreStore struct {
	reports []models.Report
	scored  map[time.Time]bool
	saved   []models.SentimentScore
}

func (m *memScoreStore) ReadReports() ([]models.Report, error) {
	return m.reports, nil
}

func (m *memScoreStore) SentimentDates() (map[time.Time]bool, error) {
	return m.scored, nil
}

func (m *memScoreStore) UpsertSentiment(scores []models.SentimentScore) error {
	m.saved = append(m.saved, scores...)
	return nil
}

type stubLabeler struct {
	calls int
	err   error
}

func (s *stubLabeler) Label(context.Context, string) (string, float64, error) {
	s.calls++
	return "bullish", 0.9, s.err
}

func testReports() []models.Report {
	texts := []string{
		"Refinery outages tightened gasoline markets. Refinery maintenance extended the outage period substantially.",
		"Refinery maintenance and turnaround schedules kept the outage elevated across the gulf coast region.",
		"Gasoline demand surged on strong export volumes. Gasoline shipments rose while demand stayed firm.",
		"Export demand for gasoline remained robust and shipment volumes climbed through the month steadily.",
	}
	reports := make([]models.Report, len(texts))
	for i, text := range texts {
		reports[i] = models.Report{
			Date:      time.Date(2024, 1, 1+i*7, 0, 0, 0, 0, time.UTC),
			URL:       "https://example.com/report",
			RawText:   text,
			WordCount: 13,
		}
	}
	return reports
}

func TestScorerScoresUnscoredReports(t *testing.T) {
	store := &memScoreStore{
		reports: testReports(),
		scored:  map[time.Time]bool{},
	}
	scorer, err := NewScorer(store, testNLPConfig(), nil)
	require.NoError(t, err)

	res, err := scorer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Scored)
	assert.Zero(t, res.Skipped)
	require.Len(t, store.saved, 4)

	for i, score := range store.saved {
		assert.Equal(t, store.reports[i].Date, score.Date)
		assert.GreaterOrEqual(t, score.DominantTopic, 0)
		assert.Less(t, score.DominantTopic, 2)
		assert.NotZero(t, score.Neutral)
	}
}

func TestScorerSkipsAlreadyScored(t *testing.T) {
	reports := testReports()
	store := &memScoreStore{
		reports: reports,
		scored: map[time.Time]bool{
			reports[0].Date: true,
			reports[1].Date: true,
		},
	}
	scorer, err := NewScorer(store, testNLPConfig(), nil)
	require.NoError(t, err)

	res, err := scorer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scored)
	assert.Equal(t, 2, res.Skipped)
	for _, score := range store.saved {
		assert.False(t, store.scored[score.Date], "rescored an already-scored date")
	}
}

func TestScorerLabelerFailureIsNonFatal(t *testing.T) {
	store := &memScoreStore{reports: testReports(), scored: map[time.Time]bool{}}
	labeler := &stubLabeler{err: errors.New("endpoint down")}
	scorer, err := NewScorer(store, testNLPConfig(), labeler)
	require.NoError(t, err)

	res, err := scorer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Scored)
	assert.Equal(t, 4, labeler.calls)
}
