package sentiment

import (
	"fmt"
	"regexp"
	"strings"

	golem "github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

var nonLetter = regexp.MustCompile(`[^a-z\s]`)

// Normalizer prepares document text for the topic model: lowercase, strip
// non-letters, tokenize, drop generic and domain stopwords, lemmatize.
type Normalizer struct {
	lemmatizer *golem.Lemmatizer
	stop       map[string]bool
}

func NewNormalizer(domainStopwords []string) (*Normalizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("loading lemmatizer dictionary: %w", err)
	}

	stop := make(map[string]bool, len(englishStopwords)+len(domainStopwords))
	for _, w := range englishStopwords {
		stop[w] = true
	}
	for _, w := range domainStopwords {
		stop[w] = true
	}

	return &Normalizer{lemmatizer: lemmatizer, stop: stop}, nil
}

// Tokens returns the normalized token sequence for one document.
func (n *Normalizer) Tokens(text string) []string {
	clean := nonLetter.ReplaceAllString(strings.ToLower(text), "")

	var out []string
	for _, tok := range strings.Fields(clean) {
		if n.stop[tok] {
			continue
		}
		out = append(out, n.lemmatizer.Lemma(tok))
	}
	return out
}
