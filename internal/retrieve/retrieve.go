// Package retrieve implements the Retriever (C5): embedding a query,
// configuring ANN probes transaction-locally, executing the ANN SQL, and
// post-filtering/capping results, per spec.md §4.5.
package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/triloy8/ragfeed-rs/internal/embed"
	"github.com/triloy8/ragfeed-rs/internal/errs"
	"github.com/triloy8/ragfeed-rs/internal/store"
)

// Query mirrors the query subcommand's CLI flags from spec.md §4.5.
type Query struct {
	Text        string
	TopK        int
	DocCap      int
	TopN        int
	Probes      int // 0 means "use the heuristic"
	FeedID      *int64
	Since       *time.Time // applied as published_at >= Since
	ShowContext bool
}

// DefaultQuery applies spec.md §4.5's named defaults.
func DefaultQuery(text string) Query {
	return Query{Text: text, TopK: 50, DocCap: 3, TopN: 10}
}

// Hit is one retained chunk in the final, post-filtered result.
type Hit struct {
	DocID       int64
	ChunkID     int64
	ChunkIndex  int
	SourceURL   string
	SourceTitle *string
	Score       float64 // cosine distance; lower is closer
	Text        string  // only populated when ShowContext is set
	HeadingPath *string // only populated when ShowContext is set
}

// Retriever answers semantic queries against the embedded corpus.
type Retriever struct {
	store   *store.Store
	encoder *embed.Encoder
}

// New constructs a Retriever.
func New(s *store.Store, e *embed.Encoder) *Retriever {
	return &Retriever{store: s, encoder: e}
}

// errNoEmbeddings is returned when an unfiltered query finds no embedding
// rows for the Retriever's model, per spec.md §4.5's "no-embeddings" failure.
var errNoEmbeddings = fmt.Errorf("no embeddings exist for the current model; run embed first")

// Search embeds q.Text, locks ivfflat.probes to the transaction, runs the
// ANN query, and post-filters/caps the raw rows into the final Hit list.
func (r *Retriever) Search(ctx context.Context, q Query) ([]Hit, error) {
	vectors, err := r.encoder.EncodeBatch([]string{q.Text})
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]

	pool := r.store.Pool()
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, errs.New(errs.KindStore, "begin query transaction", err)
	}
	defer tx.Rollback(ctx)

	probes := q.Probes
	if probes <= 0 {
		lists, err := r.currentLists(ctx, tx)
		if err != nil {
			return nil, err
		}
		probes = probesHeuristic(lists)
	}

	// SET LOCAL, never SET: the probe count must not leak past this
	// transaction into the pool's next checkout (spec.md §8 "Probes locality").
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ivfflat.probes = %d", probes)); err != nil {
		return nil, errs.New(errs.KindStore, "set local ivfflat.probes", err)
	}

	sql := `
SELECT c.doc_id, c.chunk_id, c.chunk_index, c.text, c.heading_path,
	d.source_url, d.source_title,
	(e.vec <-> $1) AS distance
FROM rag.embedding e
JOIN rag.chunk c ON c.chunk_id = e.chunk_id
JOIN rag.document d ON d.doc_id = c.doc_id
WHERE e.model = $2`
	args := []any{pgvector.NewVector(queryVec), r.encoder.ModelID()}

	if q.FeedID != nil {
		args = append(args, *q.FeedID)
		sql += fmt.Sprintf(" AND d.feed_id = $%d", len(args))
	}
	if q.Since != nil {
		args = append(args, *q.Since)
		sql += fmt.Sprintf(" AND d.published_at >= $%d", len(args))
	}

	topK := q.TopK
	if topK <= 0 {
		topK = 50
	}
	sql += fmt.Sprintf(" ORDER BY distance ASC, c.doc_id ASC, c.chunk_index ASC LIMIT %d", topK)

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.New(errs.KindStore, "execute ann query", err)
	}

	var raw []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.DocID, &h.ChunkID, &h.ChunkIndex, &h.Text, &h.HeadingPath,
			&h.SourceURL, &h.SourceTitle, &h.Score); err != nil {
			rows.Close()
			return nil, errs.New(errs.KindStore, "scan ann result", err)
		}
		raw = append(raw, h)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return nil, errs.New(errs.KindStore, "iterate ann results", rowsErr)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.New(errs.KindStore, "commit query transaction", err)
	}

	if len(raw) == 0 {
		if q.FeedID != nil || q.Since != nil {
			return nil, errs.New(errs.KindNotFound, "search",
				fmt.Errorf("no embedded chunks match the feed/since filters"))
		}
		return nil, errs.New(errs.KindNotFound, "search", errNoEmbeddings)
	}

	hits := postFilter(raw, q.DocCap, q.TopN)
	if !q.ShowContext {
		for i := range hits {
			hits[i].Text = ""
			hits[i].HeadingPath = nil
		}
	}
	return hits, nil
}

// currentLists estimates the ivfflat index's lists count with the same
// heuristic Maintainer.Reindex uses when not given explicitly (approximately
// sqrt(rows) clamped to [32, 4096]), here over the rows for the Retriever's
// model. It does not read the index itself, so an index built with an
// explicit lists value is not reflected.
func (r *Retriever) currentLists(ctx context.Context, tx pgx.Tx) (int, error) {
	var rows int
	err := tx.QueryRow(ctx, `SELECT count(*) FROM rag.embedding WHERE model = $1`, r.encoder.ModelID()).Scan(&rows)
	if err != nil {
		return 0, errs.New(errs.KindStore, "count embeddings", err)
	}
	return listsHeuristic(rows), nil
}

// listsHeuristic mirrors spec.md §4.6's reindex default.
func listsHeuristic(rows int) int {
	lists := int(math.Sqrt(float64(rows)))
	if lists < 32 {
		lists = 32
	}
	if lists > 4096 {
		lists = 4096
	}
	return lists
}

// probesHeuristic mirrors spec.md §4.5's default: max(1, lists/10).
func probesHeuristic(lists int) int {
	p := lists / 10
	if p < 1 {
		p = 1
	}
	return p
}

// postFilter collapses raw (already distance-ordered) rows by doc_id,
// keeping up to docCap best chunks per document, then trims to the top
// topN documents by each document's best (lowest) score, per spec.md §4.5
// step 4. raw is assumed ordered by ascending distance, then doc_id, then
// chunk_index, matching the SQL ORDER BY and the tie-break rule in §4.5.
func postFilter(raw []Hit, docCap, topN int) []Hit {
	if docCap <= 0 {
		docCap = len(raw)
	}

	perDoc := map[int64][]Hit{}
	order := []int64{}
	for _, h := range raw {
		if len(perDoc[h.DocID]) >= docCap {
			continue
		}
		if _, seen := perDoc[h.DocID]; !seen {
			order = append(order, h.DocID)
		}
		perDoc[h.DocID] = append(perDoc[h.DocID], h)
	}

	sort.SliceStable(order, func(i, j int) bool {
		bi, bj := perDoc[order[i]][0], perDoc[order[j]][0]
		if bi.Score != bj.Score {
			return bi.Score < bj.Score
		}
		return bi.DocID < bj.DocID
	})

	if topN > 0 && topN < len(order) {
		order = order[:topN]
	}

	var out []Hit
	for _, docID := range order {
		out = append(out, perDoc[docID]...)
	}
	return out
}
