package store

import "time"

// Status is a document's position in the ingest -> chunk -> embed lifecycle.
// It is monotone except for StatusError, which is terminal at whichever
// stage produced it and is only cleared by a successful re-run of that
// stage (spec.md §3).
type Status string

const (
	StatusIngested Status = "ingested"
	StatusChunked  Status = "chunked"
	StatusEmbedded Status = "embedded"
	StatusError    Status = "error"
)

// Feed is the ownership root for documents. Deleting a feed never cascades
// to its documents (spec.md §3).
type Feed struct {
	FeedID   int64
	URL      string
	Name     *string
	AddedAt  time.Time
	IsActive bool
}

// DocumentDraft carries the fields the Ingestor writes or overwrites.
// source_url is the dedup key across both the insert-only and upsert paths.
type DocumentDraft struct {
	FeedID       *int64
	SourceURL    string
	SourceTitle  *string
	PublishedAt  *time.Time
	FetchedAt    *time.Time
	ETag         *string
	LastModified *string
	ContentHash  *string
	RawHTML      []byte
	TextClean    *string
	Status       Status
	ErrorMsg     *string
}

// Document is the persisted row, including fields the Ingestor never sets
// directly (DocID, generated at insert time).
type Document struct {
	DocID        int64
	FeedID       *int64
	SourceURL    string
	SourceTitle  *string
	PublishedAt  *time.Time
	FetchedAt    *time.Time
	ETag         *string
	LastModified *string
	ContentHash  *string
	TextClean    *string
	Status       Status
	ErrorMsg     *string
}

// ChunkDraft is one token window produced by the Chunker, ready to insert.
type ChunkDraft struct {
	ChunkIndex  int
	Text        string
	TokenCount  int
	MD5         string
	HeadingPath *string
}

// Chunk is a persisted chunk row, as read back by the Encoder/Retriever.
type Chunk struct {
	ChunkID     int64
	DocID       int64
	ChunkIndex  int
	Text        string
	TokenCount  int
	MD5         string
	HeadingPath *string
}

// Embedding is a persisted embedding row. Exactly zero or one exists per
// chunk (spec.md §3); re-embedding with a different model overwrites.
type Embedding struct {
	ChunkID   int64
	Model     string
	Dim       int
	Vec       []float32
	CreatedAt time.Time
}

// Run is one row in rag.run: an audit record written once per CLI
// invocation, per spec.md §6.
type Run struct {
	RunID     int64
	Op        string
	Status    string
	Details   []byte
	StartedAt time.Time
}
