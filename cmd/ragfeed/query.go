package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/embed"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
	"github.com/triloy8/ragfeed-rs/internal/retrieve"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var feedID int64
	var sinceStr string
	encCfg := embed.DefaultEncoderConfig()
	q := retrieve.DefaultQuery("")

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "embed a query and run a semantic search over the embedded corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "query", runErr) }()

			q.Text = args[0]
			if feedID > 0 {
				q.FeedID = &feedID
			}
			if sinceStr != "" {
				t, perr := time.Parse("2006-01-02", sinceStr)
				if perr != nil {
					runErr = perr
					return runErr
				}
				q.Since = &t
			}

			encCfg.Dim = flags.dim

			client := newHTTPClient()
			tok, err := newTokenizer(ctx, a, client, tokenizerModelID)
			if err != nil {
				runErr = err
				return runErr
			}
			defer tok.Close()

			encoder, err := newEncoder(ctx, a, client, encCfg, tok)
			if err != nil {
				runErr = err
				return runErr
			}
			defer func() {
				if cerr := encoder.Close(); cerr != nil {
					a.log.Warn().Err(cerr).Msg("failed to close onnx session")
				}
			}()

			retriever := retrieve.New(a.store, encoder)
			hits, err := retriever.Search(ctx, q)
			if err != nil {
				runErr = err
				return runErr
			}

			counts := planapply.Counts{"hits": int64(len(hits))}
			runErr = a.writer.Write(planapply.Result("query", counts, nil, hits))
			return runErr
		},
	}

	cmd.Flags().IntVar(&q.TopK, "topk", q.TopK, "candidate rows fetched from the ANN index before post-filtering")
	cmd.Flags().IntVar(&q.DocCap, "doc-cap", q.DocCap, "maximum chunks kept per document")
	cmd.Flags().IntVar(&q.TopN, "top-n", q.TopN, "maximum documents returned")
	cmd.Flags().IntVar(&q.Probes, "probes", q.Probes, "ivfflat probes for this query (0 = use the heuristic)")
	cmd.Flags().Int64Var(&feedID, "feed", 0, "restrict results to one feed by id")
	cmd.Flags().StringVar(&sinceStr, "since", "", "restrict to documents published on/after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&q.ShowContext, "show-context", false, "include chunk text and heading path in the result")
	cmd.Flags().StringVar(&encCfg.ModelID, "model", encCfg.ModelID, "embedding model id the corpus was embedded with")
	return cmd
}
