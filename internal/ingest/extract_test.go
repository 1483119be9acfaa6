package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericExtractorPrefersReadability(t *testing.T) {
	html := `<html><head><title>Headline</title></head><body>
<article><h1>Headline</h1><p>This is the main article body with enough
content for readability heuristics to pick it as the primary candidate
over surrounding boilerplate navigation text.</p></article>
<nav>Home About Contact</nav>
</body></html>`

	e := NewGenericExtractor()
	res, err := e.Extract(context.Background(), "https://example.com/a", []byte(html))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "main article body")
}

func TestGenericExtractorFallsBackToParagraphs(t *testing.T) {
	html := `<html><head><title>Plain</title></head><body>
<p>First paragraph of content.</p>
<p>Second paragraph of content.</p>
</body></html>`

	e := NewGenericExtractor()
	res, err := e.Extract(context.Background(), "https://example.com/b", []byte(html))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "First paragraph")
	assert.Contains(t, res.Text, "Second paragraph")
}

func TestGenericExtractorErrorsOnEmptyDocument(t *testing.T) {
	e := NewGenericExtractor()
	_, err := e.Extract(context.Background(), "https://example.com/c", []byte("<html><body></body></html>"))
	assert.Error(t, err)
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("  a\n\tb   c  "))
}
