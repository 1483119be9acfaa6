package chunk

import (
	"context"
	"time"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
	"github.com/triloy8/ragfeed-rs/internal/store"
)

// Options mirrors the Chunker's CLI flags from spec.md §4.3.
type Options struct {
	DocID           *int64
	Since           *time.Time
	Force           bool
	TokensTarget    int
	Overlap         int
	MaxChunksPerDoc int
}

// DefaultOptions applies the defaults spec.md §4.3 names.
func DefaultOptions() Options {
	return Options{TokensTarget: 350, Overlap: 80}
}

// Chunker tokenizes document text and replaces each document's chunk set.
type Chunker struct {
	store *store.Store
	tok   *Tokenizer
}

// New constructs a Chunker.
func New(s *store.Store, tok *Tokenizer) *Chunker {
	return &Chunker{store: s, tok: tok}
}

// Eligible lists the documents a chunk run should consider, per spec.md
// §4.3: without --force, only documents still at status=ingested (chunks
// missing or stale) are candidates; --force widens that to every document
// matching DocID/Since.
func (c *Chunker) Eligible(ctx context.Context, opts Options) ([]store.Document, error) {
	filter := store.DocumentFilter{
		DocID:        opts.DocID,
		FetchedSince: opts.Since,
		RequireText:  true,
	}
	if !opts.Force {
		filter.Statuses = []store.Status{store.StatusIngested}
	}
	return c.store.ListDocuments(ctx, filter)
}

// PlanDocument computes what chunking a single document would do, without
// writing. Returns the windows that would be produced (nil for zero tokens).
func (c *Chunker) PlanDocument(text string, opts Options) []Window {
	ids := c.tok.Encode(text, false)
	if len(ids) == 0 {
		// spec.md §4.3 step 2 / §9 open question: zero tokens leaves
		// existing chunks untouched rather than deleting them.
		return nil
	}
	windows := Windows(len(ids), opts.TokensTarget, opts.Overlap)
	return Cap(windows, opts.MaxChunksPerDoc)
}

// ApplyDocument re-tokenizes text, replaces the document's chunks inside one
// transaction, and returns the number of chunks written. A zero-token
// document keeps its existing chunks; ApplyDocument only marks it chunked.
func (c *Chunker) ApplyDocument(ctx context.Context, docID int64, text string, opts Options) (int, error) {
	ids := c.tok.Encode(text, false)
	if len(ids) == 0 {
		return 0, c.store.MarkChunked(ctx, docID)
	}

	windows := Cap(Windows(len(ids), opts.TokensTarget, opts.Overlap), opts.MaxChunksPerDoc)

	drafts := make([]store.ChunkDraft, len(windows))
	for i, w := range windows {
		span := c.tok.Decode(ids[w.Start:w.End], true)
		drafts[i] = store.ChunkDraft{
			ChunkIndex: i,
			Text:       span,
			TokenCount: w.Len(),
			MD5:        store.MD5Hex(span),
		}
	}

	if err := c.store.ReplaceChunks(ctx, docID, drafts); err != nil {
		return 0, err
	}
	return len(drafts), nil
}

// PlanCounts builds the planapply envelope counts shared by the chunk
// subcommand's plan and apply phases.
func PlanCounts(documents, chunks int) planapply.Counts {
	return planapply.Counts{"documents": int64(documents), "chunks": int64(chunks)}
}
