package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/chunk"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

// tokenizerModelID is the E5-family tokenizer the chunk and query
// subcommands load. It is also embed's default --model, whose tokenizer embed
// loads, so "token" means the same thing on both sides of the chunk/embed
// boundary unless embed is given a different model.
const tokenizerModelID = "intfloat/e5-small-v2"

func newChunkCmd(flags *rootFlags) *cobra.Command {
	var docID int64
	var sinceStr string
	var force bool
	opts := chunk.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "tokenize eligible documents into overlapping windows and store them as chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "chunk", runErr) }()

			if docID > 0 {
				opts.DocID = &docID
			}
			opts.Force = force
			if sinceStr != "" {
				t, perr := time.Parse("2006-01-02", sinceStr)
				if perr != nil {
					runErr = perr
					return runErr
				}
				opts.Since = &t
			}

			client := newHTTPClient()
			tok, err := newTokenizer(ctx, a, client, tokenizerModelID)
			if err != nil {
				runErr = err
				return runErr
			}
			defer tok.Close()

			job := chunk.NewJob(chunk.New(a.store, tok))

			if !flags.apply {
				counts, err := job.Plan(ctx, opts)
				if err != nil {
					runErr = err
					return runErr
				}
				runErr = a.writer.Write(planapply.Plan("chunk", counts, nil, nil))
				return runErr
			}

			counts, failures, err := job.Apply(ctx, opts)
			if err != nil {
				runErr = err
				return runErr
			}
			runErr = a.writer.Write(planapply.Result("chunk", counts, failures, nil))
			return runErr
		},
	}

	cmd.Flags().Int64Var(&docID, "doc-id", 0, "restrict to one document by id")
	cmd.Flags().StringVar(&sinceStr, "since", "", "restrict to documents fetched on/after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&force, "force", false, "re-chunk documents beyond status=ingested")
	cmd.Flags().IntVar(&opts.TokensTarget, "tokens-target", opts.TokensTarget, "target token window size")
	cmd.Flags().IntVar(&opts.Overlap, "overlap", opts.Overlap, "token overlap between adjacent windows")
	cmd.Flags().IntVar(&opts.MaxChunksPerDoc, "max-chunks-per-doc", opts.MaxChunksPerDoc, "cap on chunks per document (0 = no cap)")
	return cmd
}
