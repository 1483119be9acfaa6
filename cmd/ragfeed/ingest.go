package main

import (
	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/ingest"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var feedID int64
	var feedURL string
	var limit int
	var force bool
	var concurrency int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "fetch selected feeds' RSS and resolve their articles into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "ingest", runErr) }()

			sel := ingest.Selection{Limit: limit, ForceRefetch: force, Concurrency: concurrency}
			if feedID > 0 {
				sel.FeedID = &feedID
			}
			if feedURL != "" {
				sel.FeedURL = &feedURL
			}

			client := newHTTPClient()
			ingestor := ingest.New(a.store, client, newExtractor())

			if !flags.apply {
				counts, err := ingestor.Plan(ctx, sel)
				if err != nil {
					runErr = err
					return runErr
				}
				runErr = a.writer.Write(planapply.Plan("ingest", counts, nil, nil))
				return runErr
			}

			counts, failures, err := ingestor.Apply(ctx, sel)
			if err != nil {
				runErr = err
				return runErr
			}
			runErr = a.writer.Write(planapply.Result("ingest", counts, failures, nil))
			return runErr
		},
	}

	cmd.Flags().Int64Var(&feedID, "feed-id", 0, "restrict to one feed by id")
	cmd.Flags().StringVar(&feedURL, "feed-url", "", "restrict to one feed by url")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of items considered per feed (0 = no cap)")
	cmd.Flags().BoolVar(&force, "force-refetch", false, "re-fetch and re-extract every item in the window, not just new ones")
	cmd.Flags().IntVar(&concurrency, "concurrency", ingest.DefaultConcurrency, "maximum feeds fetched in parallel")
	return cmd
}
