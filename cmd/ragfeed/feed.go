package main

import (
	"github.com/spf13/cobra"

	"github.com/triloy8/ragfeed-rs/internal/planapply"
)

func newFeedCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "manage RSS feeds",
	}
	cmd.AddCommand(newFeedAddCmd(flags), newFeedLsCmd(flags))
	return cmd
}

func newFeedAddCmd(flags *rootFlags) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "register a feed (insert, or update its name if it already exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "feed add", runErr) }()

			url := args[0]
			var namePtr *string
			if name != "" {
				namePtr = &name
			}

			counts := planapply.Counts{"feeds": 1}
			if !flags.apply {
				runErr = a.writer.Write(planapply.Plan("feed add", counts, nil, map[string]string{"url": url}))
				return runErr
			}

			f, err := a.store.UpsertFeed(ctx, url, namePtr)
			if err != nil {
				runErr = err
				return runErr
			}
			runErr = a.writer.Write(planapply.Result("feed add", counts, nil, f))
			return runErr
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "human-readable feed name")
	return cmd
}

func newFeedLsCmd(flags *rootFlags) *cobra.Command {
	var activeFlag string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "list feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			var runErr error
			defer func() { a.finish(ctx, "feed ls", runErr) }()

			var activeOnly *bool
			switch activeFlag {
			case "true":
				v := true
				activeOnly = &v
			case "false":
				v := false
				activeOnly = &v
			}

			feeds, err := a.store.ListFeeds(ctx, activeOnly)
			if err != nil {
				runErr = err
				return runErr
			}

			counts := planapply.Counts{"feeds": int64(len(feeds))}
			runErr = a.writer.Write(planapply.Result("feed ls", counts, nil, feeds))
			return runErr
		},
	}
	cmd.Flags().StringVar(&activeFlag, "active", "", "filter by is_active (true|false); unset lists all")
	return cmd
}
