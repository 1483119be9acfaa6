// Package stats implements the Stats (C8) read-only operational views:
// Overview, PerFeed, PerDocument, and PerChunk, per spec.md §2/§4.8.
package stats

import (
	"context"

	"github.com/triloy8/ragfeed-rs/internal/errs"
	"github.com/triloy8/ragfeed-rs/internal/store"
)

// Overview summarizes the corpus across every entity.
type Overview struct {
	Feeds             int64
	Documents         int64
	DocumentsByStatus map[string]int64
	Chunks            int64
	Embeddings        int64
}

// FeedStats summarizes one feed's documents.
type FeedStats struct {
	FeedID     int64
	URL        string
	Documents  int64
	Chunks     int64
	Embeddings int64
}

// DocumentStats summarizes one document's chunk/embedding coverage.
type DocumentStats struct {
	DocID      int64
	SourceURL  string
	Status     string
	Chunks     int64
	Embeddings int64
}

// ChunkStats summarizes one chunk's embedding state.
type ChunkStats struct {
	ChunkID    int64
	ChunkIndex int
	TokenCount int
	Embedded   bool
}

// Stats reads operational views over the store's pool.
type Stats struct {
	store *store.Store
}

// New constructs a Stats reader.
func New(s *store.Store) *Stats {
	return &Stats{store: s}
}

// Overview reports corpus-wide counts.
func (s *Stats) Overview(ctx context.Context) (Overview, error) {
	pool := s.store.Pool()

	var o Overview
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM rag.feed`).Scan(&o.Feeds); err != nil {
		return Overview{}, errs.New(errs.KindStore, "count feeds", err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM rag.document`).Scan(&o.Documents); err != nil {
		return Overview{}, errs.New(errs.KindStore, "count documents", err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM rag.chunk`).Scan(&o.Chunks); err != nil {
		return Overview{}, errs.New(errs.KindStore, "count chunks", err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM rag.embedding`).Scan(&o.Embeddings); err != nil {
		return Overview{}, errs.New(errs.KindStore, "count embeddings", err)
	}

	rows, err := pool.Query(ctx, `SELECT status, count(*) FROM rag.document GROUP BY status`)
	if err != nil {
		return Overview{}, errs.New(errs.KindStore, "count documents by status", err)
	}
	defer rows.Close()

	o.DocumentsByStatus = map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return Overview{}, errs.New(errs.KindStore, "scan status count", err)
		}
		o.DocumentsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return Overview{}, errs.New(errs.KindStore, "iterate status counts", err)
	}

	return o, nil
}

// PerFeed reports per-feed document/chunk/embedding counts.
func (s *Stats) PerFeed(ctx context.Context) ([]FeedStats, error) {
	rows, err := s.store.Pool().Query(ctx, `
SELECT f.feed_id, f.url,
	count(DISTINCT d.doc_id) AS documents,
	count(DISTINCT c.chunk_id) AS chunks,
	count(DISTINCT e.chunk_id) AS embeddings
FROM rag.feed f
LEFT JOIN rag.document d ON d.feed_id = f.feed_id
LEFT JOIN rag.chunk c ON c.doc_id = d.doc_id
LEFT JOIN rag.embedding e ON e.chunk_id = c.chunk_id
GROUP BY f.feed_id, f.url
ORDER BY f.feed_id`)
	if err != nil {
		return nil, errs.New(errs.KindStore, "per-feed stats", err)
	}
	defer rows.Close()

	var out []FeedStats
	for rows.Next() {
		var fs FeedStats
		if err := rows.Scan(&fs.FeedID, &fs.URL, &fs.Documents, &fs.Chunks, &fs.Embeddings); err != nil {
			return nil, errs.New(errs.KindStore, "scan per-feed stats", err)
		}
		out = append(out, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindStore, "iterate per-feed stats", err)
	}
	return out, nil
}

// PerDocument reports one document's chunk/embedding coverage. docID is
// optional; nil reports every document.
func (s *Stats) PerDocument(ctx context.Context, docID *int64) ([]DocumentStats, error) {
	sql := `
SELECT d.doc_id, d.source_url, d.status,
	count(DISTINCT c.chunk_id) AS chunks,
	count(DISTINCT e.chunk_id) AS embeddings
FROM rag.document d
LEFT JOIN rag.chunk c ON c.doc_id = d.doc_id
LEFT JOIN rag.embedding e ON e.chunk_id = c.chunk_id`
	args := []any{}
	if docID != nil {
		sql += ` WHERE d.doc_id = $1`
		args = append(args, *docID)
	}
	sql += ` GROUP BY d.doc_id, d.source_url, d.status ORDER BY d.doc_id`

	rows, err := s.store.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.New(errs.KindStore, "per-document stats", err)
	}
	defer rows.Close()

	var out []DocumentStats
	for rows.Next() {
		var ds DocumentStats
		if err := rows.Scan(&ds.DocID, &ds.SourceURL, &ds.Status, &ds.Chunks, &ds.Embeddings); err != nil {
			return nil, errs.New(errs.KindStore, "scan per-document stats", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindStore, "iterate per-document stats", err)
	}
	return out, nil
}

// PerChunk reports every chunk's embedding state for one document.
func (s *Stats) PerChunk(ctx context.Context, docID int64) ([]ChunkStats, error) {
	rows, err := s.store.Pool().Query(ctx, `
SELECT c.chunk_id, c.chunk_index, c.token_count, (e.chunk_id IS NOT NULL) AS embedded
FROM rag.chunk c
LEFT JOIN rag.embedding e ON e.chunk_id = c.chunk_id
WHERE c.doc_id = $1
ORDER BY c.chunk_index`, docID)
	if err != nil {
		return nil, errs.New(errs.KindStore, "per-chunk stats", err)
	}
	defer rows.Close()

	var out []ChunkStats
	for rows.Next() {
		var cs ChunkStats
		if err := rows.Scan(&cs.ChunkID, &cs.ChunkIndex, &cs.TokenCount, &cs.Embedded); err != nil {
			return nil, errs.New(errs.KindStore, "scan per-chunk stats", err)
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindStore, "iterate per-chunk stats", err)
	}
	return out, nil
}
