package store

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDSN skips the calling test unless a live Postgres is reachable. The
// corpus has no pgx mocking library, so cascade and transaction-atomicity
// invariants are exercised against a real database rather than a fake, the
// way intelligencedev-manifold/internal/auth/store_test.go gates its own
// schema/cascade test on DATABASE_URL.
func testDSN(t *testing.T) string {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping live-database test")
	}
	return dsn
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := testDSN(t)
	st, err := Open(context.Background(), dsn, 4, 0, 384)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func seedDocument(t *testing.T, st *Store, feedID *int64, url string) int64 {
	t.Helper()
	text := "body text"
	id, err := st.UpsertDocument(context.Background(), DocumentDraft{
		FeedID:    feedID,
		SourceURL: url,
		TextClean: &text,
		Status:    StatusIngested,
	})
	require.NoError(t, err)
	return id
}

// TestDeleteDocumentCascadesToChunksAndEmbeddings exercises spec.md §3's
// document-delete cascade: removing a document removes its chunks and,
// transitively, their embeddings.
func TestDeleteDocumentCascadesToChunksAndEmbeddings(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	docID := seedDocument(t, st, nil, "https://example.com/cascade-test")
	require.NoError(t, st.ReplaceChunks(ctx, docID, []ChunkDraft{
		{ChunkIndex: 0, Text: "chunk zero", TokenCount: 2, MD5: MD5Hex("chunk zero")},
	}))

	chunks, err := st.ChunksNeedingEmbedding(ctx, "test-model", true, 10)
	require.NoError(t, err)
	var chunkID int64
	for _, c := range chunks {
		if c.DocID == docID {
			chunkID = c.ChunkID
		}
	}
	require.NotZero(t, chunkID)
	require.NoError(t, st.UpsertEmbedding(ctx, chunkID, "test-model", 384, make([]float32, 384)))

	require.NoError(t, st.DeleteDocument(ctx, docID))

	orphanChunks, err := st.DeleteOrphanChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, orphanChunks, "document delete should have cascaded its chunks already")

	orphanEmbeddings, err := st.DeleteOrphanEmbeddings(ctx)
	require.NoError(t, err)
	assert.Zero(t, orphanEmbeddings, "document delete should have cascaded its embeddings already")
}

// TestFeedDeleteDoesNotCascadeToDocuments exercises the non-cascading half
// of spec.md §3's ownership model: rag.document.feed_id carries a plain
// REFERENCES with no ON DELETE clause, so a feed with documents still
// attached cannot be deleted at all rather than silently dropping them.
func TestFeedDeleteDoesNotCascadeToDocuments(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	feed, err := st.UpsertFeed(ctx, "https://example.com/feed-delete-test.xml", nil)
	require.NoError(t, err)
	docID := seedDocument(t, st, &feed.FeedID, "https://example.com/feed-delete-test/doc")

	_, err = st.Pool().Exec(ctx, `DELETE FROM rag.feed WHERE feed_id = $1`, feed.FeedID)
	assert.Error(t, err, "deleting a feed with attached documents must be blocked by the FK constraint, not cascade")

	docs, err := st.ListDocuments(ctx, DocumentFilter{DocID: &docID})
	require.NoError(t, err)
	require.Len(t, docs, 1, "document must survive the rejected feed deletion")

	require.NoError(t, st.DeleteDocument(ctx, docID))
}

// TestReplaceChunksIsAtomic exercises ReplaceChunks's transaction boundary:
// a failing insert (duplicate chunk_index violates the unique constraint)
// must leave the document's prior chunk set and status untouched.
func TestReplaceChunksIsAtomic(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	docID := seedDocument(t, st, nil, "https://example.com/replace-atomic-test")
	require.NoError(t, st.ReplaceChunks(ctx, docID, []ChunkDraft{
		{ChunkIndex: 0, Text: "first", TokenCount: 1, MD5: MD5Hex("first")},
	}))

	err := st.ReplaceChunks(ctx, docID, []ChunkDraft{
		{ChunkIndex: 0, Text: "dup a", TokenCount: 1, MD5: MD5Hex("dup a")},
		{ChunkIndex: 0, Text: "dup b", TokenCount: 1, MD5: MD5Hex("dup b")},
	})
	require.Error(t, err, "duplicate chunk_index must violate the unique constraint")

	docs, err := st.ListDocuments(ctx, DocumentFilter{DocID: &docID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, StatusChunked, docs[0].Status, "the failed replace must not have rolled back the prior commit's status")

	var chunkCount int
	require.NoError(t, st.Pool().QueryRow(ctx, `SELECT count(*) FROM rag.chunk WHERE doc_id = $1`, docID).Scan(&chunkCount))
	assert.Equal(t, 1, chunkCount, "the failed replace must leave the prior chunk set in place")

	require.NoError(t, st.DeleteDocument(ctx, docID))
}

// TestMarkChunkedLeavesChunksUntouched exercises the zero-token edge case:
// marking a document chunked without going through ReplaceChunks must not
// disturb any chunks it already has.
func TestMarkChunkedLeavesChunksUntouched(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	docID := seedDocument(t, st, nil, "https://example.com/mark-chunked-test")
	require.NoError(t, st.ReplaceChunks(ctx, docID, []ChunkDraft{
		{ChunkIndex: 0, Text: "kept", TokenCount: 1, MD5: MD5Hex("kept")},
	}))

	require.NoError(t, st.MarkChunked(ctx, docID))

	docs, err := st.ListDocuments(ctx, DocumentFilter{DocID: &docID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, StatusChunked, docs[0].Status)

	var chunkCount int
	require.NoError(t, st.Pool().QueryRow(ctx, `SELECT count(*) FROM rag.chunk WHERE doc_id = $1`, docID).Scan(&chunkCount))
	assert.Equal(t, 1, chunkCount, "MarkChunked must not touch existing chunk rows")

	require.NoError(t, st.DeleteDocument(ctx, docID))
}

// TestUpsertEmbeddingPromotesDocumentOnlyWhenComplete exercises the
// all-chunks-embedded transition UpsertEmbedding computes inside its own
// transaction.
func TestUpsertEmbeddingPromotesDocumentOnlyWhenComplete(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	docID := seedDocument(t, st, nil, "https://example.com/promote-test")
	require.NoError(t, st.ReplaceChunks(ctx, docID, []ChunkDraft{
		{ChunkIndex: 0, Text: "a", TokenCount: 1, MD5: MD5Hex("a")},
		{ChunkIndex: 1, Text: "b", TokenCount: 1, MD5: MD5Hex("b")},
	}))

	chunks, err := st.ChunksNeedingEmbedding(ctx, "promote-model", true, 10)
	require.NoError(t, err)
	var mine []Chunk
	for _, c := range chunks {
		if c.DocID == docID {
			mine = append(mine, c)
		}
	}
	require.Len(t, mine, 2)

	require.NoError(t, st.UpsertEmbedding(ctx, mine[0].ChunkID, "promote-model", 384, make([]float32, 384)))
	docs, err := st.ListDocuments(ctx, DocumentFilter{DocID: &docID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, StatusChunked, docs[0].Status, "must not promote until every chunk has an embedding")

	require.NoError(t, st.UpsertEmbedding(ctx, mine[1].ChunkID, "promote-model", 384, make([]float32, 384)))
	docs, err = st.ListDocuments(ctx, DocumentFilter{DocID: &docID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, StatusEmbedded, docs[0].Status)

	require.NoError(t, st.DeleteDocument(ctx, docID))
}
