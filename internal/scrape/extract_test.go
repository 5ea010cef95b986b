package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longPara = "Crude runs rose sharply this week as refiners returned from planned maintenance across the Gulf Coast region."
const shortPara = "Home | Archive | Contact"

func TestExtractText_PrefersKnownContainer(t *testing.T) {
	html := `<html><body>
		<div class="nav"><p>` + longPara + `</p></div>
		<div class="pagemain"><p>` + longPara + `</p><p>` + shortPara + `</p></div>
	</body></html>`

	text, words, err := ExtractText([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, longPara, text, "only paragraphs inside the matched container are kept")
	assert.Equal(t, 17, words)
}

func TestExtractText_FallsBackToWholeDocument(t *testing.T) {
	html := `<html><body><div class="odd-layout"><p>` + longPara + `</p></div></body></html>`

	text, words, err := ExtractText([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, longPara, text)
	assert.Greater(t, words, 10)
}

func TestExtractText_FiltersShortParagraphs(t *testing.T) {
	html := `<html><body><article>
		<p>` + shortPara + `</p>
		<p>` + longPara + `</p>
		<p>Ten words exactly here one two three four five six</p>
	</article></body></html>`

	text, _, err := ExtractText([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, longPara, text, "paragraphs of ten or fewer words are boilerplate")
}

func TestExtractText_JoinsWithBlankLines(t *testing.T) {
	html := `<article><p>` + longPara + `</p><p>` + longPara + `</p></article>`

	text, words, err := ExtractText([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, longPara+"\n\n"+longPara, text)
	assert.Equal(t, 34, words)
}

func TestExtractText_EmptyPage(t *testing.T) {
	_, words, err := ExtractText([]byte(`<html><body><p>Too short.</p></body></html>`))
	require.NoError(t, err)
	assert.Zero(t, words)
}
