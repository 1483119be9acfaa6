// Package ingest implements the Ingestor (C2): fetching RSS feeds,
// resolving articles, extracting clean text, and upserting documents,
// per spec.md §4.2.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/triloy8/ragfeed-rs/internal/errs"
	"github.com/triloy8/ragfeed-rs/internal/httpx"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
	"github.com/triloy8/ragfeed-rs/internal/store"
)

// Selection mirrors the ingest subcommand's CLI flags from spec.md §4.2.
type Selection struct {
	FeedID       *int64
	FeedURL      *string
	Limit        int
	ForceRefetch bool
	Concurrency  int
}

// DefaultConcurrency bounds feed fan-out when Selection.Concurrency is unset.
const DefaultConcurrency = 4

// Ingestor fetches RSS feeds and resolves articles into the document store.
type Ingestor struct {
	store     *store.Store
	client    *httpx.Client
	extractor Extractor
}

// New constructs an Ingestor.
func New(s *store.Store, client *httpx.Client, extractor Extractor) *Ingestor {
	return &Ingestor{store: s, client: client, extractor: extractor}
}

func (i *Ingestor) feeds(ctx context.Context, sel Selection) ([]store.Feed, error) {
	if sel.FeedID != nil {
		all, err := i.store.ListFeeds(ctx, nil)
		if err != nil {
			return nil, err
		}
		for _, f := range all {
			if f.FeedID == *sel.FeedID {
				return []store.Feed{f}, nil
			}
		}
		return nil, errs.New(errs.KindNotFound, "select feed", fmt.Errorf("feed %d not found", *sel.FeedID))
	}
	if sel.FeedURL != nil {
		all, err := i.store.ListFeeds(ctx, nil)
		if err != nil {
			return nil, err
		}
		for _, f := range all {
			if f.URL == *sel.FeedURL {
				return []store.Feed{f}, nil
			}
		}
		return nil, errs.New(errs.KindNotFound, "select feed", fmt.Errorf("feed %q not found", *sel.FeedURL))
	}
	active := true
	return i.store.ListFeeds(ctx, &active)
}

// docResult is one item's outcome, reported back to the caller's counters.
type docResult struct {
	inserted bool
	updated  bool
	skipped  bool
	failed   bool
	ref      string
	reason   string
}

// Apply runs the full ingest pass: fetching each selected feed's RSS body
// concurrently (bounded by Selection.Concurrency, per spec.md §5), then
// resolving each feed's items against the store per spec.md §4.2's
// insert-only/force-refetch split.
func (i *Ingestor) Apply(ctx context.Context, sel Selection) (planapply.Counts, []planapply.Failure, error) {
	feeds, err := i.feeds(ctx, sel)
	if err != nil {
		return nil, nil, err
	}

	concurrency := sel.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu sync.Mutex
	var inserted, updated, skipped int64
	var failures []planapply.Failure

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			results, err := i.processFeed(gctx, feed, sel)
			if err != nil {
				// A feed-level failure (bad RSS fetch/decode) is recorded
				// against the feed itself and does not abort sibling feeds.
				mu.Lock()
				failures = append(failures, planapply.Failure{Ref: feed.URL, Reason: err.Error()})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			for _, r := range results {
				switch {
				case r.inserted:
					inserted++
				case r.updated:
					updated++
				case r.skipped:
					skipped++
				case r.failed:
					failures = append(failures, planapply.Failure{Ref: r.ref, Reason: r.reason})
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	counts := planapply.Counts{"inserted": inserted, "updated": updated, "skipped": skipped}
	return counts, failures, nil
}

// Plan previews Apply's counts without writing by running the same
// selection and enumeration logic, but never inserting/upserting.
func (i *Ingestor) Plan(ctx context.Context, sel Selection) (planapply.Counts, error) {
	feeds, err := i.feeds(ctx, sel)
	if err != nil {
		return nil, err
	}

	var wouldInsert, wouldUpdate, wouldSkip int64
	concurrency := sel.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var mu sync.Mutex

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			body, err := i.fetchFeedBody(gctx, feed)
			if err != nil {
				return nil
			}
			items, err := DecodeRSS(body)
			if err != nil {
				return nil
			}
			items = applyLimit(items, sel.Limit)

			for _, item := range items {
				_, exists, err := i.store.DocumentByURL(gctx, item.SourceURL)
				if err != nil {
					continue
				}
				mu.Lock()
				switch {
				case !exists:
					wouldInsert++
				case sel.ForceRefetch:
					wouldUpdate++
				default:
					wouldSkip++
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return planapply.Counts{"inserted": wouldInsert, "updated": wouldUpdate, "skipped": wouldSkip}, nil
}

func (i *Ingestor) fetchFeedBody(ctx context.Context, feed store.Feed) ([]byte, error) {
	resp, err := i.client.Get(ctx, feed.URL, "", "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func applyLimit(items []FeedItem, limit int) []FeedItem {
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}

// processFeed fetches one feed's RSS body and resolves each item against
// the store, per spec.md §4.2's insert-only/force-refetch algorithm.
func (i *Ingestor) processFeed(ctx context.Context, feed store.Feed, sel Selection) ([]docResult, error) {
	body, err := i.fetchFeedBody(ctx, feed)
	if err != nil {
		return nil, err
	}

	items, err := DecodeRSS(body)
	if err != nil {
		return nil, err
	}
	items = applyLimit(items, sel.Limit)

	feedID := feed.FeedID
	results := make([]docResult, 0, len(items))
	for _, item := range items {
		r := i.resolveItem(ctx, feedID, item, sel.ForceRefetch)
		results = append(results, r)
	}
	return results, nil
}

// resolveItem implements the per-item branch of spec.md §4.2. Without
// --force-refetch, ingest is an insert-only RSS sync: a new source_url gets
// a metadata-only row (status=ingested, no body yet); an existing one is
// skipped, untouched. --force-refetch additionally fetches the article body
// for every item in the current window, new or already known, and upserts
// the full document (content_hash, raw_html, text_clean).
func (i *Ingestor) resolveItem(ctx context.Context, feedID int64, item FeedItem, force bool) docResult {
	if !force {
		return i.insertMetadataOnly(ctx, feedID, item)
	}

	existing, exists, err := i.store.DocumentByURL(ctx, item.SourceURL)
	if err != nil {
		return docResult{failed: true, ref: item.SourceURL, reason: err.Error()}
	}

	etag, lastModified := "", ""
	if exists {
		if existing.ETag != nil {
			etag = *existing.ETag
		}
		if existing.LastModified != nil {
			lastModified = *existing.LastModified
		}
	}

	resp, err := i.client.Get(ctx, item.SourceURL, etag, lastModified)
	if err != nil {
		if exists {
			if markErr := i.store.MarkDocumentError(ctx, item.SourceURL, err.Error()); markErr != nil {
				return docResult{failed: true, ref: item.SourceURL, reason: markErr.Error()}
			}
		}
		return docResult{failed: true, ref: item.SourceURL, reason: err.Error()}
	}

	if resp.StatusCode == http.StatusNotModified {
		// Bytes are unchanged since the last fetch; nothing to upsert.
		return docResult{skipped: true}
	}

	sum := sha256.Sum256(resp.Body)
	contentHash := hex.EncodeToString(sum[:])

	extracted, err := i.extractor.Extract(ctx, item.SourceURL, resp.Body)
	if err != nil {
		if exists {
			if markErr := i.store.MarkDocumentError(ctx, item.SourceURL, err.Error()); markErr != nil {
				return docResult{failed: true, ref: item.SourceURL, reason: markErr.Error()}
			}
		}
		return docResult{failed: true, ref: item.SourceURL, reason: err.Error()}
	}

	title := item.Title
	if title == "" {
		title = extracted.Title
	}

	feedIDPtr := &feedID
	fetchedAt := time.Now()
	draft := store.DocumentDraft{
		FeedID:      feedIDPtr,
		SourceURL:   item.SourceURL,
		SourceTitle: &title,
		PublishedAt: item.PublishedAt,
		FetchedAt:   &fetchedAt,
		ContentHash: &contentHash,
		RawHTML:     resp.Body,
		TextClean:   &extracted.Text,
		Status:      store.StatusIngested,
	}
	if resp.ETag != "" {
		draft.ETag = &resp.ETag
	}
	if resp.LastModified != "" {
		draft.LastModified = &resp.LastModified
	}

	if _, err := i.store.UpsertDocument(ctx, draft); err != nil {
		return docResult{failed: true, ref: item.SourceURL, reason: err.Error()}
	}
	if exists {
		return docResult{updated: true}
	}
	return docResult{inserted: true}
}

func (i *Ingestor) insertMetadataOnly(ctx context.Context, feedID int64, item FeedItem) docResult {
	feedIDPtr := &feedID
	title := item.Title
	draft := store.DocumentDraft{
		FeedID:      feedIDPtr,
		SourceURL:   item.SourceURL,
		SourceTitle: &title,
		PublishedAt: item.PublishedAt,
		Status:      store.StatusIngested,
	}
	_, inserted, err := i.store.InsertDocumentIfAbsent(ctx, draft)
	if err != nil {
		return docResult{failed: true, ref: item.SourceURL, reason: err.Error()}
	}
	if inserted {
		return docResult{inserted: true}
	}
	return docResult{skipped: true}
}
