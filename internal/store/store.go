// Package store is the typed access layer over the rag schema: feeds,
// documents, chunks, and embeddings, plus the cascade and transaction
// discipline spec.md §4.1 requires. It generalizes the teacher's
// single-table vectorstore.Store into the full Feed -> Document -> Chunk ->
// Embedding tree.
package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/triloy8/ragfeed-rs/internal/errs"
)

// Store is the typed access layer over Postgres + pgvector.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres, applies the bootstrap schema, and returns a
// ready Store. dim is the embedding vector width baked into the ivfflat
// index's column type (spec.md §6: vector(384) is the schema default, but
// the column width must track --dim).
func Open(ctx context.Context, dsn string, maxConns int, statementTimeoutMS int, dim int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "parse dsn", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if statementTimeoutMS > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", statementTimeoutMS)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errs.New(errs.KindStore, "connect", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx, dim); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) ensureSchema(ctx context.Context, dim int) error {
	stmt := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS rag;
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS rag.feed (
	feed_id serial PRIMARY KEY,
	url text UNIQUE NOT NULL,
	name text,
	added_at timestamptz DEFAULT now(),
	is_active boolean DEFAULT true
);

CREATE TABLE IF NOT EXISTS rag.document (
	doc_id bigserial PRIMARY KEY,
	feed_id int REFERENCES rag.feed,
	source_url text UNIQUE NOT NULL,
	source_title text,
	published_at timestamptz,
	fetched_at timestamptz,
	etag text,
	last_modified text,
	content_hash text,
	raw_html bytea,
	text_clean text,
	status text,
	error_msg text
);
CREATE INDEX IF NOT EXISTS document_published_at_idx ON rag.document (published_at DESC);
CREATE INDEX IF NOT EXISTS document_feed_id_idx ON rag.document (feed_id);

CREATE TABLE IF NOT EXISTS rag.chunk (
	chunk_id bigserial PRIMARY KEY,
	doc_id bigint REFERENCES rag.document ON DELETE CASCADE,
	chunk_index int,
	text text NOT NULL,
	token_count int,
	md5 text,
	heading_path text,
	fts tsvector GENERATED ALWAYS AS (to_tsvector('english', coalesce(text, ''))) STORED,
	UNIQUE (doc_id, chunk_index)
);
CREATE INDEX IF NOT EXISTS chunk_fts_idx ON rag.chunk USING GIN (fts);
CREATE INDEX IF NOT EXISTS chunk_doc_id_idx ON rag.chunk (doc_id);

CREATE TABLE IF NOT EXISTS rag.embedding (
	chunk_id bigint PRIMARY KEY REFERENCES rag.chunk ON DELETE CASCADE,
	model text NOT NULL,
	dim int NOT NULL,
	vec vector(%[1]d) NOT NULL,
	created_at timestamptz DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rag.run (
	run_id bigserial PRIMARY KEY,
	op text NOT NULL,
	status text NOT NULL,
	details jsonb,
	started_at timestamptz DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rag.eval_set (
	eval_id bigserial PRIMARY KEY,
	name text NOT NULL,
	created_at timestamptz DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rag.query_log (
	query_id bigserial PRIMARY KEY,
	q text NOT NULL,
	created_at timestamptz DEFAULT now()
);
`, dim)

	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return errs.New(errs.KindStore, "ensure schema", err)
	}

	// The ivfflat build is a separate Exec: pgx sends a multi-statement
	// string as one implicit transaction, so if this DO block were part
	// of the statement above, its failure on an empty table would roll
	// back every CREATE TABLE that preceded it.
	_, err := s.pool.Exec(ctx, `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_indexes
		WHERE schemaname = 'rag' AND indexname = 'embedding_vec_ivfflat_idx'
	) THEN
		EXECUTE 'CREATE INDEX embedding_vec_ivfflat_idx ON rag.embedding USING ivfflat (vec vector_cosine_ops) WITH (lists = 100)';
	END IF;
END
$$;
`)
	if err != nil && strings.Contains(err.Error(), "ivfflat") {
		// ivfflat needs at least one row to pick statistics; ignore the
		// build failure on an empty table and build it later via reindex.
		return nil
	}
	if err != nil {
		return errs.New(errs.KindStore, "ensure schema", err)
	}
	return nil
}

// UpsertFeed inserts a feed by url, or updates its name (when name is
// non-nil) if it already exists; is_active is left as it is.
func (s *Store) UpsertFeed(ctx context.Context, url string, name *string) (Feed, error) {
	row := s.pool.QueryRow(ctx, `
INSERT INTO rag.feed (url, name)
VALUES ($1, $2)
ON CONFLICT (url) DO UPDATE SET name = COALESCE(EXCLUDED.name, rag.feed.name)
RETURNING feed_id, url, name, added_at, is_active`, url, name)

	var f Feed
	if err := row.Scan(&f.FeedID, &f.URL, &f.Name, &f.AddedAt, &f.IsActive); err != nil {
		return Feed{}, errs.New(errs.KindStore, "upsert feed", err)
	}
	return f, nil
}

// ListFeeds lists feeds, optionally filtered by is_active.
func (s *Store) ListFeeds(ctx context.Context, activeOnly *bool) ([]Feed, error) {
	sql := `SELECT feed_id, url, name, added_at, is_active FROM rag.feed`
	args := []any{}
	if activeOnly != nil {
		sql += ` WHERE is_active = $1`
		args = append(args, *activeOnly)
	}
	sql += ` ORDER BY feed_id`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.New(errs.KindStore, "list feeds", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.FeedID, &f.URL, &f.Name, &f.AddedAt, &f.IsActive); err != nil {
			return nil, errs.New(errs.KindStore, "scan feed", err)
		}
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindStore, "iterate feeds", err)
	}
	return feeds, nil
}

// InsertDocumentIfAbsent inserts a document only if source_url is new.
// Used by the Ingestor's insert-only path (without --force-refetch).
func (s *Store) InsertDocumentIfAbsent(ctx context.Context, d DocumentDraft) (docID int64, inserted bool, err error) {
	row := s.pool.QueryRow(ctx, `
INSERT INTO rag.document (feed_id, source_url, source_title, published_at, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (source_url) DO NOTHING
RETURNING doc_id`, d.FeedID, d.SourceURL, d.SourceTitle, d.PublishedAt, string(StatusIngested))

	var id int64
	scanErr := row.Scan(&id)
	if scanErr == pgx.ErrNoRows {
		existing, err := s.docIDByURL(ctx, d.SourceURL)
		return existing, false, err
	}
	if scanErr != nil {
		return 0, false, errs.New(errs.KindStore, "insert document", scanErr)
	}
	return id, true, nil
}

func (s *Store) docIDByURL(ctx context.Context, url string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT doc_id FROM rag.document WHERE source_url = $1`, url).Scan(&id)
	if err != nil {
		return 0, errs.New(errs.KindStore, "lookup document", err)
	}
	return id, nil
}

// UpsertDocument overwrites title/published/fetched/hash/raw/text/status/
// error only, never chunks, per spec.md §4.1. Used by the Ingestor's
// --force-refetch path.
func (s *Store) UpsertDocument(ctx context.Context, d DocumentDraft) (int64, error) {
	row := s.pool.QueryRow(ctx, `
INSERT INTO rag.document
	(feed_id, source_url, source_title, published_at, fetched_at, etag, last_modified, content_hash, raw_html, text_clean, status, error_msg)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (source_url) DO UPDATE SET
	source_title = EXCLUDED.source_title,
	published_at = EXCLUDED.published_at,
	fetched_at = EXCLUDED.fetched_at,
	etag = EXCLUDED.etag,
	last_modified = EXCLUDED.last_modified,
	content_hash = EXCLUDED.content_hash,
	raw_html = EXCLUDED.raw_html,
	text_clean = EXCLUDED.text_clean,
	status = EXCLUDED.status,
	error_msg = EXCLUDED.error_msg
RETURNING doc_id`,
		d.FeedID, d.SourceURL, d.SourceTitle, d.PublishedAt, d.FetchedAt, d.ETag, d.LastModified,
		d.ContentHash, d.RawHTML, d.TextClean, string(d.Status), d.ErrorMsg)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, errs.New(errs.KindStore, "upsert document", err)
	}
	return id, nil
}

// MarkDocumentError sets status='error' and error_msg on an existing
// document row (the upsert-path failure model of spec.md §4.2).
func (s *Store) MarkDocumentError(ctx context.Context, sourceURL, msg string) error {
	_, err := s.pool.Exec(ctx, `
UPDATE rag.document SET status = $1, error_msg = $2 WHERE source_url = $3`,
		string(StatusError), msg, sourceURL)
	if err != nil {
		return errs.New(errs.KindStore, "mark document error", err)
	}
	return nil
}

// MarkChunked sets status='chunked' on a document without touching its
// chunk rows, for the zero-token case where the Chunker has nothing to
// replace (spec.md §4.3 step 2).
func (s *Store) MarkChunked(ctx context.Context, docID int64) error {
	_, err := s.pool.Exec(ctx, `
UPDATE rag.document SET status = $1 WHERE doc_id = $2`, string(StatusChunked), docID)
	if err != nil {
		return errs.New(errs.KindStore, "mark chunked", err)
	}
	return nil
}

// DocumentFilter selects documents for the Chunker and Encoder's eligibility
// passes. A nil/empty field means "no constraint on this dimension".
type DocumentFilter struct {
	DocID        *int64
	Statuses     []Status
	FetchedSince *time.Time
	RequireText  bool
}

// ListDocuments returns documents matching the filter, ordered by doc_id.
func (s *Store) ListDocuments(ctx context.Context, f DocumentFilter) ([]Document, error) {
	sql := `
SELECT doc_id, feed_id, source_url, source_title, published_at, fetched_at,
	etag, last_modified, content_hash, text_clean, status, error_msg
FROM rag.document WHERE true`
	args := []any{}

	if f.DocID != nil {
		args = append(args, *f.DocID)
		sql += fmt.Sprintf(" AND doc_id = $%d", len(args))
	}
	if len(f.Statuses) > 0 {
		strs := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			strs[i] = string(st)
		}
		args = append(args, strs)
		sql += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if f.FetchedSince != nil {
		args = append(args, *f.FetchedSince)
		sql += fmt.Sprintf(" AND fetched_at >= $%d", len(args))
	}
	if f.RequireText {
		sql += " AND text_clean IS NOT NULL"
	}
	sql += " ORDER BY doc_id"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.New(errs.KindStore, "list documents", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var status string
		if err := rows.Scan(&d.DocID, &d.FeedID, &d.SourceURL, &d.SourceTitle, &d.PublishedAt,
			&d.FetchedAt, &d.ETag, &d.LastModified, &d.ContentHash, &d.TextClean, &status, &d.ErrorMsg); err != nil {
			return nil, errs.New(errs.KindStore, "scan document", err)
		}
		d.Status = Status(status)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindStore, "iterate documents", err)
	}
	return docs, nil
}

// DocumentByURL looks up a document by its dedup key, returning (Document{}, false, nil)
// if none exists. Used by the Ingestor to read back etag/last_modified before
// a conditional GET on a force-refetch pass.
func (s *Store) DocumentByURL(ctx context.Context, sourceURL string) (Document, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT doc_id, feed_id, source_url, source_title, published_at, fetched_at,
	etag, last_modified, content_hash, text_clean, status, error_msg
FROM rag.document WHERE source_url = $1`, sourceURL)

	var d Document
	var status string
	err := row.Scan(&d.DocID, &d.FeedID, &d.SourceURL, &d.SourceTitle, &d.PublishedAt,
		&d.FetchedAt, &d.ETag, &d.LastModified, &d.ContentHash, &d.TextClean, &status, &d.ErrorMsg)
	if err == pgx.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, errs.New(errs.KindStore, "lookup document by url", err)
	}
	d.Status = Status(status)
	return d, true, nil
}

// ReplaceChunks deletes all existing chunks for a document and inserts the
// new set with dense chunk_index, setting status='chunked', atomically.
func (s *Store) ReplaceChunks(ctx context.Context, docID int64, chunks []ChunkDraft) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.New(errs.KindStore, "begin replace chunks", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rag.chunk WHERE doc_id = $1`, docID); err != nil {
		return errs.New(errs.KindStore, "delete chunks", err)
	}

	for _, c := range chunks {
		if _, err := tx.Exec(ctx, `
INSERT INTO rag.chunk (doc_id, chunk_index, text, token_count, md5, heading_path)
VALUES ($1, $2, $3, $4, $5, $6)`,
			docID, c.ChunkIndex, c.Text, c.TokenCount, c.MD5, c.HeadingPath); err != nil {
			return errs.New(errs.KindStore, "insert chunk", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE rag.document SET status = $1 WHERE doc_id = $2`, string(StatusChunked), docID); err != nil {
		return errs.New(errs.KindStore, "update document status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.New(errs.KindStore, "commit replace chunks", err)
	}
	return nil
}

// ChunksNeedingEmbedding selects chunks whose embedding is missing, or whose
// model differs from modelID when force is false; all chunks when force is
// true. Chunks with zero tokens or empty text are never selected.
func (s *Store) ChunksNeedingEmbedding(ctx context.Context, modelID string, force bool, limit int) ([]Chunk, error) {
	sql := `
SELECT c.chunk_id, c.doc_id, c.chunk_index, c.text, c.token_count, c.md5, c.heading_path
FROM rag.chunk c
LEFT JOIN rag.embedding e ON e.chunk_id = c.chunk_id
WHERE c.token_count > 0 AND length(c.text) > 0`
	args := []any{}
	if !force {
		sql += ` AND (e.chunk_id IS NULL OR e.model <> $1)`
		args = append(args, modelID)
	}
	sql += ` ORDER BY c.chunk_id`
	if limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.New(errs.KindStore, "select chunks needing embedding", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.ChunkIndex, &c.Text, &c.TokenCount, &c.MD5, &c.HeadingPath); err != nil {
			return nil, errs.New(errs.KindStore, "scan chunk", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindStore, "iterate chunks", err)
	}
	return chunks, nil
}

// UpsertEmbedding writes or overwrites the embedding row for a chunk, and
// promotes the owning document to status='embedded' if every one of its
// chunks now has a current embedding.
func (s *Store) UpsertEmbedding(ctx context.Context, chunkID int64, model string, dim int, vec []float32) error {
	if len(vec) != dim {
		return errs.New(errs.KindConfig, "upsert embedding", fmt.Errorf("vector length %d does not match dim %d", len(vec), dim))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.New(errs.KindStore, "begin upsert embedding", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO rag.embedding (chunk_id, model, dim, vec, created_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (chunk_id) DO UPDATE SET
	model = EXCLUDED.model, dim = EXCLUDED.dim, vec = EXCLUDED.vec, created_at = EXCLUDED.created_at`,
		chunkID, model, dim, pgvector.NewVector(vec))
	if err != nil {
		return errs.New(errs.KindStore, "upsert embedding", err)
	}

	var docID int64
	if err := tx.QueryRow(ctx, `SELECT doc_id FROM rag.chunk WHERE chunk_id = $1`, chunkID).Scan(&docID); err != nil {
		return errs.New(errs.KindStore, "lookup chunk document", err)
	}

	var remaining int
	err = tx.QueryRow(ctx, `
SELECT count(*) FROM rag.chunk c
LEFT JOIN rag.embedding e ON e.chunk_id = c.chunk_id AND e.model = $2
WHERE c.doc_id = $1 AND e.chunk_id IS NULL`, docID, model).Scan(&remaining)
	if err != nil {
		return errs.New(errs.KindStore, "count pending embeddings", err)
	}
	if remaining == 0 {
		if _, err := tx.Exec(ctx, `UPDATE rag.document SET status = $1 WHERE doc_id = $2`, string(StatusEmbedded), docID); err != nil {
			return errs.New(errs.KindStore, "promote document embedded", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.New(errs.KindStore, "commit upsert embedding", err)
	}
	return nil
}

// DeleteDocument removes a document; its chunks and their embeddings cascade
// via the schema's ON DELETE CASCADE, per spec.md §3.
func (s *Store) DeleteDocument(ctx context.Context, docID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rag.document WHERE doc_id = $1`, docID)
	if err != nil {
		return errs.New(errs.KindStore, "delete document", err)
	}
	return nil
}

// DeleteOrphanEmbeddings removes embeddings with no matching chunk.
func (s *Store) DeleteOrphanEmbeddings(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM rag.embedding e WHERE NOT EXISTS (SELECT 1 FROM rag.chunk c WHERE c.chunk_id = e.chunk_id)`)
	if err != nil {
		return 0, errs.New(errs.KindStore, "delete orphan embeddings", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOrphanChunks removes chunks with no matching document.
func (s *Store) DeleteOrphanChunks(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM rag.chunk c WHERE NOT EXISTS (SELECT 1 FROM rag.document d WHERE d.doc_id = c.doc_id)`)
	if err != nil {
		return 0, errs.New(errs.KindStore, "delete orphan chunks", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteStaleDocuments removes documents in the given status older than the
// cutoff (used for both the "error" and "never past ingested" GC rules).
func (s *Store) DeleteStaleDocuments(ctx context.Context, status string, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM rag.document WHERE status = $1 AND coalesce(fetched_at, 'epoch'::timestamptz) < $2`, status, olderThan)
	if err != nil {
		return 0, errs.New(errs.KindStore, "delete stale documents", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteBadChunks removes chunks with zero tokens or empty text.
func (s *Store) DeleteBadChunks(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
DELETE FROM rag.chunk WHERE token_count <= 0 OR length(trim(text)) = 0`)
	if err != nil {
		return 0, errs.New(errs.KindStore, "delete bad chunks", err)
	}
	return tag.RowsAffected(), nil
}

// FixStatus recomputes every document's status from the existence of its
// chunks/embeddings, for the GC "fix-status" sub-operation. Documents at
// status=error are left as they are.
func (s *Store) FixStatus(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE rag.document d SET status = CASE
	WHEN EXISTS (
		SELECT 1 FROM rag.chunk c JOIN rag.embedding e ON e.chunk_id = c.chunk_id
		WHERE c.doc_id = d.doc_id
	) AND NOT EXISTS (
		SELECT 1 FROM rag.chunk c LEFT JOIN rag.embedding e ON e.chunk_id = c.chunk_id
		WHERE c.doc_id = d.doc_id AND e.chunk_id IS NULL
	) THEN 'embedded'
	WHEN EXISTS (SELECT 1 FROM rag.chunk c WHERE c.doc_id = d.doc_id) THEN 'chunked'
	ELSE 'ingested'
END
WHERE d.status <> 'error'`)
	if err != nil {
		return 0, errs.New(errs.KindStore, "fix status", err)
	}
	return tag.RowsAffected(), nil
}

// CountEmbeddingRows reports the total embedding row count, the input to
// the Maintainer's lists-count heuristic.
func (s *Store) CountEmbeddingRows(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM rag.embedding`).Scan(&n); err != nil {
		return 0, errs.New(errs.KindStore, "count embedding rows", err)
	}
	return n, nil
}

// CountOrphanEmbeddings previews DeleteOrphanEmbeddings without deleting.
func (s *Store) CountOrphanEmbeddings(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
SELECT count(*) FROM rag.embedding e WHERE NOT EXISTS (SELECT 1 FROM rag.chunk c WHERE c.chunk_id = e.chunk_id)`).Scan(&n)
	if err != nil {
		return 0, errs.New(errs.KindStore, "count orphan embeddings", err)
	}
	return n, nil
}

// CountOrphanChunks previews DeleteOrphanChunks without deleting.
func (s *Store) CountOrphanChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
SELECT count(*) FROM rag.chunk c WHERE NOT EXISTS (SELECT 1 FROM rag.document d WHERE d.doc_id = c.doc_id)`).Scan(&n)
	if err != nil {
		return 0, errs.New(errs.KindStore, "count orphan chunks", err)
	}
	return n, nil
}

// CountStaleDocuments previews DeleteStaleDocuments without deleting.
func (s *Store) CountStaleDocuments(ctx context.Context, status string, olderThan time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
SELECT count(*) FROM rag.document WHERE status = $1 AND coalesce(fetched_at, 'epoch'::timestamptz) < $2`,
		status, olderThan).Scan(&n)
	if err != nil {
		return 0, errs.New(errs.KindStore, "count stale documents", err)
	}
	return n, nil
}

// CountBadChunks previews DeleteBadChunks without deleting.
func (s *Store) CountBadChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
SELECT count(*) FROM rag.chunk WHERE token_count <= 0 OR length(trim(text)) = 0`).Scan(&n)
	if err != nil {
		return 0, errs.New(errs.KindStore, "count bad chunks", err)
	}
	return n, nil
}

// DropTempIndexes removes any "_new"-suffixed ivfflat index left behind by
// an interrupted Maintainer.Reindex swap (see internal/maintain/reindex.go).
func (s *Store) DropTempIndexes(ctx context.Context) (int64, error) {
	var names []string
	rows, err := s.pool.Query(ctx, `
SELECT indexname FROM pg_indexes WHERE schemaname = 'rag' AND indexname LIKE 'embedding_vec_ivfflat_idx_new%'`)
	if err != nil {
		return 0, errs.New(errs.KindStore, "list temp indexes", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, errs.New(errs.KindStore, "scan temp index name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, errs.New(errs.KindStore, "iterate temp indexes", err)
	}
	rows.Close()

	for _, name := range names {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP INDEX IF EXISTS rag.%s", name)); err != nil {
			return 0, errs.New(errs.KindStore, "drop temp index", err)
		}
	}
	return int64(len(names)), nil
}

// Vacuum runs VACUUM ANALYZE (VACUUM FULL ANALYZE when full is set) over the
// rag document, chunk, and embedding tables.
func (s *Store) Vacuum(ctx context.Context, full bool) error {
	stmt := "VACUUM ANALYZE rag.document, rag.chunk, rag.embedding"
	if full {
		stmt = "VACUUM FULL ANALYZE rag.document, rag.chunk, rag.embedding"
	}
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return errs.New(errs.KindStore, "vacuum", err)
	}
	return nil
}

// RecordRun writes one rag.run row per CLI invocation.
func (s *Store) RecordRun(ctx context.Context, op, status string, details any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return errs.New(errs.KindConfig, "marshal run details", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO rag.run (op, status, details) VALUES ($1, $2, $3)`, op, status, payload)
	if err != nil {
		return errs.New(errs.KindStore, "record run", err)
	}
	return nil
}

// Pool exposes the underlying pool for components (Retriever, Maintainer)
// that need direct transaction control (e.g. SET LOCAL ivfflat.probes).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// MD5Hex is the md5(text) invariant from spec.md §3, shared by the Chunker
// and by tests that need to reproduce a chunk's stored hash.
func MD5Hex(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
