package embed

import (
	"context"
	"fmt"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
	"github.com/triloy8/ragfeed-rs/internal/store"
)

// JobOptions mirrors the embed subcommand's CLI flags from spec.md §4.4.
type JobOptions struct {
	Force bool
	Limit int
}

// Job batches candidate chunks through an Encoder and persists the result
// one batch at a time, so progress survives a mid-run restart.
type Job struct {
	store   *store.Store
	encoder *Encoder
}

// NewJob constructs a Job.
func NewJob(s *store.Store, e *Encoder) *Job {
	return &Job{store: s, encoder: e}
}

// Candidates lists the chunks a run would embed, without writing anything.
func (j *Job) Candidates(ctx context.Context, opts JobOptions) ([]store.Chunk, error) {
	return j.store.ChunksNeedingEmbedding(ctx, j.encoder.cfg.ModelID, opts.Force, opts.Limit)
}

// Plan previews the counts an Apply would produce: one batch of up to
// cfg.Batch chunks per encoder call, batches total, and candidate chunks.
func (j *Job) Plan(ctx context.Context, opts JobOptions) (planapply.Counts, error) {
	chunks, err := j.Candidates(ctx, opts)
	if err != nil {
		return nil, err
	}
	batches := 0
	if len(chunks) > 0 {
		batches = (len(chunks) + j.encoder.cfg.Batch - 1) / j.encoder.cfg.Batch
	}
	return planapply.Counts{"chunks": int64(len(chunks)), "batches": int64(batches)}, nil
}

// Apply runs the candidates through the encoder in batches of cfg.Batch,
// upserting each batch's vectors before moving to the next so a crash mid-run
// leaves earlier batches durably embedded. A batch that fails to encode is a
// model-kind error and aborts the whole run per spec.md §7 (model failures
// are not continuable); a single chunk's store upsert failing within an
// otherwise-successful batch is recorded and the batch continues.
func (j *Job) Apply(ctx context.Context, opts JobOptions) (planapply.Counts, []planapply.Failure, error) {
	chunks, err := j.Candidates(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	var embedded int64
	var failures []planapply.Failure
	batchSize := j.encoder.cfg.Batch
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := j.encoder.EncodeBatch(texts)
		if err != nil {
			return planapply.Counts{"chunks": embedded}, failures, err
		}

		for i, c := range batch {
			if err := j.store.UpsertEmbedding(ctx, c.ChunkID, j.encoder.cfg.ModelID, j.encoder.cfg.Dim, vectors[i]); err != nil {
				failures = append(failures, planapply.Failure{
					Ref:    fmt.Sprintf("chunk:%d", c.ChunkID),
					Reason: err.Error(),
				})
				continue
			}
			embedded++
		}
	}

	return planapply.Counts{"chunks": embedded}, failures, nil
}
