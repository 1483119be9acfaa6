package ingest

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/triloy8/ragfeed-rs/internal/errs"
)

// rssFeed is the minimal RSS 2.0 shape the Ingestor reads. No RSS parsing
// library appears anywhere in the retrieved corpus (see DESIGN.md), so this
// is decoded with encoding/xml directly rather than through a third-party
// feed parser.
type rssFeed struct {
	XMLName xml.Name  `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	GUID    string `xml:"guid"`
	PubDate string `xml:"pubDate"`
}

// FeedItem is one decoded RSS item, normalized to the fields the Ingestor's
// algorithm enumerates: source_url, title, published_at.
type FeedItem struct {
	SourceURL   string
	Title       string
	PublishedAt *time.Time
}

// rfc822Layouts covers the pubDate formats feeds commonly emit; RFC 2822
// formally requires the first, but real-world feeds vary in zone notation.
var rfc822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z07:00",
}

// DecodeRSS parses an RSS 2.0 document into a flat list of items.
func DecodeRSS(body []byte) ([]FeedItem, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, errs.New(errs.KindParse, "decode rss", err)
	}

	items := make([]FeedItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		sourceURL := strings.TrimSpace(it.Link)
		if sourceURL == "" {
			sourceURL = strings.TrimSpace(it.GUID)
		}
		if sourceURL == "" {
			continue
		}
		items = append(items, FeedItem{
			SourceURL:   sourceURL,
			Title:       strings.TrimSpace(it.Title),
			PublishedAt: parsePubDate(it.PubDate),
		})
	}
	return items, nil
}

func parsePubDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range rfc822Layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
