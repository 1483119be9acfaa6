package chunk

import (
	"context"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

// Job drives the Chunker across every eligible document, the way embed.Job
// drives the Encoder across every eligible chunk batch.
type Job struct {
	chunker *Chunker
}

// NewJob constructs a Job.
func NewJob(c *Chunker) *Job {
	return &Job{chunker: c}
}

// Plan previews a full run: the number of eligible documents and the total
// windows chunking them would produce, without writing.
func (j *Job) Plan(ctx context.Context, opts Options) (planapply.Counts, error) {
	docs, err := j.chunker.Eligible(ctx, opts)
	if err != nil {
		return nil, err
	}

	chunks := 0
	for _, d := range docs {
		if d.TextClean == nil {
			continue
		}
		chunks += len(j.chunker.PlanDocument(*d.TextClean, opts))
	}
	return PlanCounts(len(docs), chunks), nil
}

// Apply chunks every eligible document, replacing each one's chunk set in
// its own transaction. A single document's failure is recorded as a
// Failure and does not abort the remaining documents (chunking one
// document never depends on another's outcome).
func (j *Job) Apply(ctx context.Context, opts Options) (planapply.Counts, []planapply.Failure, error) {
	docs, err := j.chunker.Eligible(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	var failures []planapply.Failure
	documents, chunks := 0, 0
	for _, d := range docs {
		if d.TextClean == nil {
			continue
		}
		n, err := j.chunker.ApplyDocument(ctx, d.DocID, *d.TextClean, opts)
		if err != nil {
			failures = append(failures, planapply.Failure{Ref: d.SourceURL, Reason: err.Error()})
			continue
		}
		documents++
		chunks += n
	}

	return PlanCounts(documents, chunks), failures, nil
}
