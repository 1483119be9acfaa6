package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyLimitTruncatesWhenPositiveAndSmaller(t *testing.T) {
	items := []FeedItem{{SourceURL: "a"}, {SourceURL: "b"}, {SourceURL: "c"}}
	got := applyLimit(items, 2)
	assert.Equal(t, []FeedItem{{SourceURL: "a"}, {SourceURL: "b"}}, got)
}

func TestApplyLimitNoopWhenZeroOrLarger(t *testing.T) {
	items := []FeedItem{{SourceURL: "a"}, {SourceURL: "b"}}
	assert.Equal(t, items, applyLimit(items, 0))
	assert.Equal(t, items, applyLimit(items, 10))
}
