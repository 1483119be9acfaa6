package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/maintain"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

func newGCCmd(flags *rootFlags) *cobra.Command {
	opts := maintain.GCOptions{}
	var all bool
	var olderThanStr string

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "garbage-collect orphan rows, stale documents, and dead indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "gc", runErr) }()

			if all {
				opts.OrphanEmbeddings = true
				opts.OrphanChunks = true
				opts.StaleError = true
				opts.StaleIngested = true
				opts.BadChunks = true
				opts.DropTempIndexes = true
				opts.FixStatus = true
				opts.Vacuum = true
			}

			if olderThanStr != "" {
				d, perr := time.ParseDuration(olderThanStr)
				if perr != nil {
					runErr = perr
					return runErr
				}
				opts.OlderThan = d
			} else {
				opts.OlderThan = 30 * 24 * time.Hour
			}

			g := maintain.NewGC(a.store)

			if !flags.apply {
				counts, err := g.Plan(ctx, opts)
				if err != nil {
					runErr = err
					return runErr
				}
				runErr = a.writer.Write(planapply.Plan("gc", counts, nil, nil))
				return runErr
			}

			counts, err := g.Apply(ctx, opts)
			if err != nil {
				runErr = err
				return runErr
			}
			runErr = a.writer.Write(planapply.Result("gc", counts, nil, nil))
			return runErr
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "run every sub-operation")
	cmd.Flags().BoolVar(&opts.OrphanEmbeddings, "orphan-embeddings", false, "delete embeddings whose chunk no longer exists")
	cmd.Flags().BoolVar(&opts.OrphanChunks, "orphan-chunks", false, "delete chunks whose document no longer exists")
	cmd.Flags().BoolVar(&opts.StaleError, "stale-error", false, "delete documents stuck at status=error past the age cutoff")
	cmd.Flags().BoolVar(&opts.StaleIngested, "stale-ingested", false, "delete documents stuck at status=ingested past the age cutoff")
	cmd.Flags().BoolVar(&opts.BadChunks, "bad-chunks", false, "delete chunks with zero tokens or empty text")
	cmd.Flags().BoolVar(&opts.DropTempIndexes, "drop-temp-indexes", false, "drop leftover reindex-swap temporary indexes")
	cmd.Flags().BoolVar(&opts.FixStatus, "fix-status", false, "reconcile a document's status with its actual chunk/embedding rows")
	cmd.Flags().BoolVar(&opts.Vacuum, "vacuum", false, "VACUUM the rag tables")
	cmd.Flags().BoolVar(&opts.VacuumFull, "vacuum-full", false, "use VACUUM FULL instead of a plain VACUUM")
	cmd.Flags().StringVar(&olderThanStr, "older-than", "", "age cutoff for stale-* sub-operations (Go duration, default 720h)")
	return cmd
}
