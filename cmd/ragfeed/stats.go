package main

import (
	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
	"github.com/triloy8/ragfeed-rs/internal/stats"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "print read-only corpus statistics",
	}
	cmd.AddCommand(
		newStatsOverviewCmd(flags),
		newStatsPerFeedCmd(flags),
		newStatsPerDocumentCmd(flags),
		newStatsPerChunkCmd(flags),
	)
	return cmd
}

func newStatsOverviewCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "corpus-wide counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "stats overview", runErr) }()

			o, err := stats.New(a.store).Overview(ctx)
			if err != nil {
				runErr = err
				return runErr
			}
			counts := planapply.Counts{
				"feeds": o.Feeds, "documents": o.Documents,
				"chunks": o.Chunks, "embeddings": o.Embeddings,
			}
			runErr = a.writer.Write(planapply.Result("stats overview", counts, nil, o))
			return runErr
		},
	}
}

func newStatsPerFeedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "per-feed",
		Short: "per-feed document/chunk/embedding counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "stats per-feed", runErr) }()

			rows, err := stats.New(a.store).PerFeed(ctx)
			if err != nil {
				runErr = err
				return runErr
			}
			counts := planapply.Counts{"feeds": int64(len(rows))}
			runErr = a.writer.Write(planapply.Result("stats per-feed", counts, nil, rows))
			return runErr
		},
	}
}

func newStatsPerDocumentCmd(flags *rootFlags) *cobra.Command {
	var docID int64

	cmd := &cobra.Command{
		Use:   "per-document",
		Short: "per-document chunk/embedding coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "stats per-document", runErr) }()

			var idPtr *int64
			if docID > 0 {
				idPtr = &docID
			}

			rows, err := stats.New(a.store).PerDocument(ctx, idPtr)
			if err != nil {
				runErr = err
				return runErr
			}
			counts := planapply.Counts{"documents": int64(len(rows))}
			runErr = a.writer.Write(planapply.Result("stats per-document", counts, nil, rows))
			return runErr
		},
	}
	cmd.Flags().Int64Var(&docID, "doc-id", 0, "restrict to one document (0 = all documents)")
	return cmd
}

func newStatsPerChunkCmd(flags *rootFlags) *cobra.Command {
	var docID int64

	cmd := &cobra.Command{
		Use:   "per-chunk",
		Short: "one document's chunks and their embedding state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "stats per-chunk", runErr) }()

			rows, err := stats.New(a.store).PerChunk(ctx, docID)
			if err != nil {
				runErr = err
				return runErr
			}
			counts := planapply.Counts{"chunks": int64(len(rows))}
			runErr = a.writer.Write(planapply.Result("stats per-chunk", counts, nil, rows))
			return runErr
		},
	}
	cmd.Flags().Int64Var(&docID, "doc-id", 0, "document id (required)")
	cmd.MarkFlagRequired("doc-id")
	return cmd
}
