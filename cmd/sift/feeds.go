package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haldana/sift/internal/cli"
	"github.com/haldana/sift/internal/ingest"
	"github.com/haldana/sift/internal/model"
)

func feedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "feeds",
		Aliases: []string{"feed"},
		Short:   "Manage feed subscriptions",
	}

	cmd.AddCommand(feedsAddCmd())
	cmd.AddCommand(feedsListCmd())
	cmd.AddCommand(feedsRemoveCmd())
	cmd.AddCommand(feedsFetchCmd())

	return cmd
}

func feedsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Subscribe to a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			title, _ := cmd.Flags().GetString("title")
			if title == "" {
				title = args[0]
			}

			feed := &model.Feed{Title: title, URL: args[0]}

			if categoryName, _ := cmd.Flags().GetString("category"); categoryName != "" {
				category, err := db.GetCategoryByName(ctx, categoryName)
				if err != nil {
					category, err = db.CreateCategory(ctx, categoryName, "")
					if err != nil {
						return fmt.Errorf("failed to create category %q: %w", categoryName, err)
					}
				}
				feed.CategoryID = &category.ID
			}

			if err := db.CreateFeed(ctx, feed); err != nil {
				return fmt.Errorf("failed to add feed: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Subscribed to %s (feed %d)", feed.URL, feed.ID)))
			return nil
		},
	}

	cmd.Flags().String("title", "", "Feed title (defaults to the URL until fetched)")
	cmd.Flags().String("category", "", "Category to file the feed under")
	return cmd
}

func feedsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscribed feeds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			feeds, err := db.GetFeeds(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get feeds: %w", err)
			}

			if len(feeds) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No feeds subscribed"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tURL\tLAST FETCH")
			for _, feed := range feeds {
				lastFetch := "never"
				if feed.LastFetchedAt != nil {
					lastFetch = feed.LastFetchedAt.Format("2006-01-02 15:04")
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					feed.ID, truncateString(feed.Title, 30), truncateString(feed.URL, 50), lastFetch)
			}
			return w.Flush()
		},
	}
}

func feedsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Unsubscribe from a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := db.DeleteFeed(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to remove feed: %w", err)
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Removed feed %d", id)))
			return nil
		},
	}
}

func feedsFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [id]",
		Short: "Fetch new articles",
		Long:  `Fetch one feed by ID, or all subscribed feeds when no ID is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			fetcher := ingest.NewFetcher(db)

			var count int
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				feed, err := db.GetFeedByID(ctx, id)
				if err != nil {
					return fmt.Errorf("feed %d not found", id)
				}
				count, err = fetcher.FetchFeed(ctx, *feed)
				if err != nil {
					return err
				}
			} else {
				if count, err = fetcher.FetchAll(ctx); err != nil {
					return err
				}
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Fetched %d new article(s)", count)))
			return nil
		},
	}
}
