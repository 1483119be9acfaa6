package maintain

import (
	"context"
	"time"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
	"github.com/triloy8/ragfeed-rs/internal/store"
)

// GCOptions selects which sub-operations a gc run performs, mirroring the
// gc subcommand's flags from spec.md §4.6. A false field skips that
// sub-operation entirely (it is not run, not run-and-ignored).
type GCOptions struct {
	OrphanEmbeddings bool
	OrphanChunks     bool
	StaleError       bool
	StaleIngested    bool
	BadChunks        bool
	DropTempIndexes  bool
	FixStatus        bool
	Vacuum           bool
	VacuumFull       bool
	OlderThan        time.Duration
}

// GC runs the selected sub-operations, each in its own transaction (or, for
// the simple single-statement deletes, as Postgres's implicit
// one-statement transaction) so partial application is well-defined per
// spec.md §4.6.
type GC struct {
	store *store.Store
}

// NewGC constructs a GC.
func NewGC(s *store.Store) *GC {
	return &GC{store: s}
}

// Apply runs every sub-operation GCOptions selects, accumulating one count
// per sub-operation name.
func (g *GC) Apply(ctx context.Context, opts GCOptions) (planapply.Counts, error) {
	counts := planapply.Counts{}
	cutoff := time.Now().Add(-opts.OlderThan)

	if opts.OrphanEmbeddings {
		n, err := g.store.DeleteOrphanEmbeddings(ctx)
		if err != nil {
			return nil, err
		}
		counts["orphan-embeddings"] = n
	}
	if opts.OrphanChunks {
		n, err := g.store.DeleteOrphanChunks(ctx)
		if err != nil {
			return nil, err
		}
		counts["orphan-chunks"] = n
	}
	if opts.StaleError {
		n, err := g.store.DeleteStaleDocuments(ctx, string(store.StatusError), cutoff)
		if err != nil {
			return nil, err
		}
		counts["stale-error"] = n
	}
	if opts.StaleIngested {
		n, err := g.store.DeleteStaleDocuments(ctx, string(store.StatusIngested), cutoff)
		if err != nil {
			return nil, err
		}
		counts["stale-ingested"] = n
	}
	if opts.BadChunks {
		n, err := g.store.DeleteBadChunks(ctx)
		if err != nil {
			return nil, err
		}
		counts["bad-chunks"] = n
	}
	if opts.DropTempIndexes {
		n, err := g.store.DropTempIndexes(ctx)
		if err != nil {
			return nil, err
		}
		counts["drop-temp-indexes"] = n
	}
	if opts.FixStatus {
		n, err := g.store.FixStatus(ctx)
		if err != nil {
			return nil, err
		}
		counts["fix-status"] = n
	}
	if opts.Vacuum {
		if err := g.store.Vacuum(ctx, opts.VacuumFull); err != nil {
			return nil, err
		}
		counts["vacuum"] = 1
	}

	return counts, nil
}

// Plan previews the same sub-operations' effect without writing. Several
// sub-operations (drop-temp-indexes, fix-status, vacuum) have no cheap
// dry-run count and are
// reported as "would run" (1) rather than an exact row estimate.
func (g *GC) Plan(ctx context.Context, opts GCOptions) (planapply.Counts, error) {
	counts := planapply.Counts{}
	cutoff := time.Now().Add(-opts.OlderThan)

	if opts.OrphanEmbeddings {
		n, err := g.store.CountOrphanEmbeddings(ctx)
		if err != nil {
			return nil, err
		}
		counts["orphan-embeddings"] = n
	}
	if opts.OrphanChunks {
		n, err := g.store.CountOrphanChunks(ctx)
		if err != nil {
			return nil, err
		}
		counts["orphan-chunks"] = n
	}
	if opts.StaleError {
		n, err := g.store.CountStaleDocuments(ctx, string(store.StatusError), cutoff)
		if err != nil {
			return nil, err
		}
		counts["stale-error"] = n
	}
	if opts.StaleIngested {
		n, err := g.store.CountStaleDocuments(ctx, string(store.StatusIngested), cutoff)
		if err != nil {
			return nil, err
		}
		counts["stale-ingested"] = n
	}
	if opts.BadChunks {
		n, err := g.store.CountBadChunks(ctx)
		if err != nil {
			return nil, err
		}
		counts["bad-chunks"] = n
	}
	if opts.DropTempIndexes {
		counts["drop-temp-indexes"] = 1
	}
	if opts.FixStatus {
		counts["fix-status"] = 1
	}
	if opts.Vacuum {
		counts["vacuum"] = 1
	}

	return counts, nil
}
