package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Feed</title>
  <item>
    <title>First Post</title>
    <link>https://example.com/posts/1</link>
    <guid>https://example.com/posts/1</guid>
    <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
  </item>
  <item>
    <title>No Link, GUID Only</title>
    <guid>https://example.com/posts/2</guid>
    <pubDate>not-a-real-date</pubDate>
  </item>
  <item>
    <title>Empty Item</title>
  </item>
</channel>
</rss>`

func TestDecodeRSSExtractsItems(t *testing.T) {
	items, err := DecodeRSS([]byte(sampleRSS))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://example.com/posts/1", items[0].SourceURL)
	assert.Equal(t, "First Post", items[0].Title)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, 2006, items[0].PublishedAt.Year())
}

func TestDecodeRSSFallsBackToGUIDWhenLinkMissing(t *testing.T) {
	items, err := DecodeRSS([]byte(sampleRSS))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/posts/2", items[1].SourceURL)
}

func TestDecodeRSSUnparseablePubDateYieldsNilTime(t *testing.T) {
	items, err := DecodeRSS([]byte(sampleRSS))
	require.NoError(t, err)
	assert.Nil(t, items[1].PublishedAt)
}

func TestDecodeRSSSkipsItemsWithoutAnyIdentifier(t *testing.T) {
	items, err := DecodeRSS([]byte(sampleRSS))
	require.NoError(t, err)
	for _, it := range items {
		assert.NotEqual(t, "Empty Item", it.Title)
	}
}

func TestDecodeRSSMalformedXML(t *testing.T) {
	_, err := DecodeRSS([]byte("<rss><channel>"))
	assert.Error(t, err)
}
