package maintain

import (
	"context"
	"fmt"
	"math"

	"github.com/triloy8/ragfeed-rs/internal/errs"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
	"github.com/triloy8/ragfeed-rs/internal/store"
)

// ReindexOptions mirrors the reindex subcommand's CLI flags from spec.md §4.6.
type ReindexOptions struct {
	Lists   int  // 0 means "use the heuristic"
	InPlace bool // true: REINDEX the existing index; false: build-and-swap
}

const canonicalIndexName = "embedding_vec_ivfflat_idx"

// Reindex rebuilds the ivfflat index, either in place or by building a new
// one and atomically swapping it in, per spec.md §4.6.
type Reindex struct {
	store *store.Store
}

// NewReindex constructs a Reindex.
func NewReindex(s *store.Store) *Reindex {
	return &Reindex{store: s}
}

// listsHeuristic mirrors spec.md §4.6: approximately sqrt(rows) clamped to
// [32, 4096].
func listsHeuristic(rows int64) int {
	lists := int(math.Sqrt(float64(rows)))
	if lists < 32 {
		lists = 32
	}
	if lists > 4096 {
		lists = 4096
	}
	return lists
}

// Plan previews the lists value a run would use, without touching the index.
func (r *Reindex) Plan(ctx context.Context, opts ReindexOptions) (planapply.Counts, error) {
	lists := opts.Lists
	if lists <= 0 {
		rows, err := r.store.CountEmbeddingRows(ctx)
		if err != nil {
			return nil, err
		}
		lists = listsHeuristic(rows)
	}
	return planapply.Counts{"lists": int64(lists)}, nil
}

// Apply rebuilds the index. In-place mode issues REINDEX INDEX directly. Swap
// mode builds a new index under a temporary name, then in one transaction
// drops the old index and renames the new one to the canonical name,
// followed by ANALYZE — so a concurrent query always sees either the old or
// the new index, never neither (spec.md §4.6, §8 scenario 6).
func (r *Reindex) Apply(ctx context.Context, opts ReindexOptions) (planapply.Counts, error) {
	lists := opts.Lists
	if lists <= 0 {
		rows, err := r.store.CountEmbeddingRows(ctx)
		if err != nil {
			return nil, err
		}
		lists = listsHeuristic(rows)
	}

	pool := r.store.Pool()

	if opts.InPlace {
		if _, err := pool.Exec(ctx, fmt.Sprintf("REINDEX INDEX rag.%s", canonicalIndexName)); err != nil {
			return nil, errs.New(errs.KindStore, "reindex in place", err)
		}
		return planapply.Counts{"lists": int64(lists)}, nil
	}

	tempName := canonicalIndexName + "_new"
	buildSQL := fmt.Sprintf(
		"CREATE INDEX %s ON rag.embedding USING ivfflat (vec vector_cosine_ops) WITH (lists = %d)",
		tempName, lists)
	if _, err := pool.Exec(ctx, buildSQL); err != nil {
		return nil, errs.New(errs.KindStore, "build new ivfflat index", err)
	}

	txn, err := pool.Begin(ctx)
	if err != nil {
		return nil, errs.New(errs.KindStore, "begin reindex swap", err)
	}
	defer txn.Rollback(ctx)

	if _, err := txn.Exec(ctx, fmt.Sprintf("DROP INDEX IF EXISTS rag.%s", canonicalIndexName)); err != nil {
		return nil, errs.New(errs.KindStore, "drop old ivfflat index", err)
	}
	if _, err := txn.Exec(ctx, fmt.Sprintf("ALTER INDEX rag.%s RENAME TO %s", tempName, canonicalIndexName)); err != nil {
		return nil, errs.New(errs.KindStore, "rename new ivfflat index", err)
	}
	if err := txn.Commit(ctx); err != nil {
		return nil, errs.New(errs.KindStore, "commit reindex swap", err)
	}

	if _, err := pool.Exec(ctx, "ANALYZE rag.embedding"); err != nil {
		return nil, errs.New(errs.KindStore, "analyze after reindex", err)
	}

	return planapply.Counts{"lists": int64(lists)}, nil
}
