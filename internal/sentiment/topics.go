package sentiment

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/james-bowman/nlp"

	"crackwatch/internal/config"
)

// TopicAssignment is one document's dominant topic and its posterior
// probability. Topic ids are only meaningful within the batch that fit them.
type TopicAssignment struct {
	Topic int
	Prob  float64
}

// TopicModel fits one LDA model per scoring batch over a bag-of-words
// representation with bounded document frequency and a capped vocabulary.
type TopicModel struct {
	cfg config.NLPConfig
}

func NewTopicModel(cfg config.NLPConfig) *TopicModel {
	return &TopicModel{cfg: cfg}
}

// Fit trains the model on the whole batch's normalized token sets and
// returns the per-document dominant topic. The batch fits as a unit; any
// failure here aborts scoring before anything is persisted.
func (tm *TopicModel) Fit(docs [][]string) ([]TopicAssignment, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	vocab := tm.buildVocabulary(docs)
	if len(vocab) == 0 {
		return nil, fmt.Errorf("topic model vocabulary is empty after frequency filtering (%d docs)", len(docs))
	}

	joined := make([]string, len(docs))
	for i, toks := range docs {
		kept := make([]string, 0, len(toks))
		for _, t := range toks {
			if vocab[t] {
				kept = append(kept, t)
			}
		}
		joined[i] = strings.Join(kept, " ")
	}

	vectoriser := nlp.NewCountVectoriser()
	lda := nlp.NewLatentDirichletAllocation(tm.cfg.Topics)
	pipeline := nlp.NewPipeline(vectoriser, lda)

	topicsOverDocs, err := pipeline.FitTransform(joined...)
	if err != nil {
		return nil, fmt.Errorf("fitting topic model: %w", err)
	}

	tm.logTopTerms(vectoriser, lda)

	topics, nDocs := topicsOverDocs.Dims()
	out := make([]TopicAssignment, nDocs)
	for j := 0; j < nDocs; j++ {
		best, bestProb := 0, topicsOverDocs.At(0, j)
		for i := 1; i < topics; i++ {
			if p := topicsOverDocs.At(i, j); p > bestProb {
				best, bestProb = i, p
			}
		}
		out[j] = TopicAssignment{Topic: best, Prob: bestProb}
	}
	return out, nil
}

// buildVocabulary applies the document-frequency bounds and the vocabulary
// cap (by total term frequency) to the batch.
func (tm *TopicModel) buildVocabulary(docs [][]string) map[string]bool {
	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, toks := range docs {
		seen := make(map[string]bool, len(toks))
		for _, t := range toks {
			termFreq[t]++
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}

	maxDF := int(tm.cfg.MaxDocFreqRatio * float64(len(docs)))
	if maxDF < 1 {
		maxDF = 1
	}

	var terms []string
	for t, df := range docFreq {
		if df >= tm.cfg.MinDocFreq && df <= maxDF {
			terms = append(terms, t)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > tm.cfg.MaxVocabulary {
		terms = terms[:tm.cfg.MaxVocabulary]
	}

	vocab := make(map[string]bool, len(terms))
	for _, t := range terms {
		vocab[t] = true
	}
	return vocab
}

// logTopTerms surfaces the ten heaviest terms per fitted topic.
func (tm *TopicModel) logTopTerms(vectoriser *nlp.CountVectoriser, lda *nlp.LatentDirichletAllocation) {
	components := lda.Components()
	if components == nil {
		return
	}

	index := make(map[int]string, len(vectoriser.Vocabulary))
	for term, i := range vectoriser.Vocabulary {
		index[i] = term
	}

	topics, terms := components.Dims()
	for topic := 0; topic < topics; topic++ {
		type weighted struct {
			term   string
			weight float64
		}
		ranked := make([]weighted, 0, terms)
		for i := 0; i < terms; i++ {
			ranked = append(ranked, weighted{term: index[i], weight: components.At(topic, i)})
		}
		sort.Slice(ranked, func(a, b int) bool { return ranked[a].weight > ranked[b].weight })

		n := 10
		if n > len(ranked) {
			n = len(ranked)
		}
		top := make([]string, n)
		for i := 0; i < n; i++ {
			top[i] = ranked[i].term
		}
		slog.Info("topic summary", "topic", topic, "top_terms", strings.Join(top, " "))
	}
}
