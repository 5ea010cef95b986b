package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentContainers are tried most-specific first; the whole document is the
// final fallback when none match.
var contentContainers = []string{
	"div.pagemain",
	"#main-content",
	"article",
	"div.article",
}

// minParagraphWords filters out navigation and boilerplate fragments.
const minParagraphWords = 10

// ExtractText locates the report body in raw markup and returns the retained
// paragraphs joined by blank lines, plus the word count. A zero word count
// means the page had no usable text.
func ExtractText(html []byte) (string, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", 0, fmt.Errorf("parsing markup: %w", err)
	}

	container := doc.Selection
	for _, sel := range contentContainers {
		if found := doc.Find(sel); found.Length() > 0 {
			container = found.First()
			break
		}
	}

	var paragraphs []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		words := strings.Fields(p.Text())
		if len(words) > minParagraphWords {
			paragraphs = append(paragraphs, strings.Join(words, " "))
		}
	})

	text := strings.Join(paragraphs, "\n\n")
	return text, len(strings.Fields(text)), nil
}
