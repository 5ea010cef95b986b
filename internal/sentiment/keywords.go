package sentiment

import "strings"

// NetKeywordScore counts bullish and bearish domain phrases in the text and
// returns their difference normalized by document word count. Zero for empty
// input rather than dividing by zero.
func NetKeywordScore(text string, wordCount int, bullish, bearish []string) float64 {
	if text == "" || wordCount == 0 {
		return 0
	}
	lower := strings.ToLower(text)

	var bullishCount, bearishCount int
	for _, term := range bullish {
		bullishCount += strings.Count(lower, term)
	}
	for _, term := range bearish {
		bearishCount += strings.Count(lower, term)
	}

	return float64(bullishCount-bearishCount) / float64(wordCount)
}
