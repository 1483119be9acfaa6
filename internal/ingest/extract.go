package ingest

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/triloy8/ragfeed-rs/internal/errs"
)

// ExtractResult is the clean text an Extractor produces from one article's
// raw HTML.
type ExtractResult struct {
	Title string
	Text  string
}

// Extractor turns a fetched page's raw HTML into clean article text,
// per spec.md §6's abstract contract.
type Extractor interface {
	Extract(ctx context.Context, pageURL string, rawHTML []byte) (ExtractResult, error)
}

// fallbackSelectors are tried in order when readability yields nothing; the
// first selector with non-empty text wins. "article" and common content
// containers are tried before falling back to every <p>.
var fallbackSelectors = []string{"article", "main", "[role=main]", ".post-content", ".article-body"}

// GenericExtractor tries go-shiori/go-readability first, the way
// intelligencedev/manifold's fetch tool does, and falls back to a
// goquery CSS-selector scrape with a paragraph-concatenation fallback
// when readability finds no content, per spec.md §6.
type GenericExtractor struct{}

// NewGenericExtractor constructs the default Extractor.
func NewGenericExtractor() *GenericExtractor {
	return &GenericExtractor{}
}

func (e *GenericExtractor) Extract(ctx context.Context, pageURL string, rawHTML []byte) (ExtractResult, error) {
	base, _ := url.Parse(pageURL)

	if art, err := readability.FromReader(strings.NewReader(string(rawHTML)), base); err == nil {
		if text := strings.TrimSpace(art.TextContent); text != "" {
			return ExtractResult{Title: strings.TrimSpace(art.Title), Text: text}, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(rawHTML)))
	if err != nil {
		return ExtractResult{}, errs.New(errs.KindParse, "parse html for extraction", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range fallbackSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return ExtractResult{Title: title, Text: collapseWhitespace(text)}, nil
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := collapseWhitespace(s.Text()); t != "" {
			paragraphs = append(paragraphs, t)
		}
	})
	if len(paragraphs) == 0 {
		return ExtractResult{}, errs.New(errs.KindParse, "extract article text",
			errNoExtractableContent)
	}
	return ExtractResult{Title: title, Text: strings.Join(paragraphs, "\n\n")}, nil
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
