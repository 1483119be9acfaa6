package main

import (
	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/maintain"
	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

func newReindexCmd(flags *rootFlags) *cobra.Command {
	opts := maintain.ReindexOptions{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the ivfflat index, in place or via a build-and-swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "reindex", runErr) }()

			r := maintain.NewReindex(a.store)

			if !flags.apply {
				counts, err := r.Plan(ctx, opts)
				if err != nil {
					runErr = err
					return runErr
				}
				runErr = a.writer.Write(planapply.Plan("reindex", counts, nil, nil))
				return runErr
			}

			counts, err := r.Apply(ctx, opts)
			if err != nil {
				runErr = err
				return runErr
			}
			runErr = a.writer.Write(planapply.Result("reindex", counts, nil, nil))
			return runErr
		},
	}

	cmd.Flags().IntVar(&opts.Lists, "lists", 0, "ivfflat lists parameter (0 = use the sqrt(rows) heuristic)")
	cmd.Flags().BoolVar(&opts.InPlace, "in-place", false, "REINDEX the existing index instead of building a new one and swapping it in")
	return cmd
}
