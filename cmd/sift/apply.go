package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haldana/sift/internal/cli"
	"github.com/haldana/sift/internal/notify"
	"github.com/haldana/sift/internal/rules"
	"github.com/haldana/sift/internal/service"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply rules to stored articles",
		Long: `Evaluate stored articles against the active rule set and execute the
actions of every matching rule. Each qualifying match runs its action exactly
once and is recorded in the rule's match statistics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			filter := service.ArticleFilter{}
			filter.UnreadOnly, _ = cmd.Flags().GetBool("unread")
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if feedID, _ := cmd.Flags().GetInt64("feed"); feedID > 0 {
				filter.FeedID = &feedID
			}

			articles, err := db.GetArticles(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to load articles: %w", err)
			}
			if len(articles) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No articles to evaluate"))
				return nil
			}

			articleIDs := make([]int64, len(articles))
			for i, a := range articles {
				articleIDs[i] = a.ID
			}

			notifier := notify.New(viper.GetInt("notify.buffer"))
			defer notifier.Close()
			go drainNotifications(notifier)

			executor, err := rules.NewExecutor(db, db, db, db, notifier)
			if err != nil {
				return err
			}

			coordinator, err := rules.NewCoordinator(db, db, executor, viper.GetInt("engine.workers"))
			if err != nil {
				return err
			}

			bar := progressbar.Default(int64(len(articleIDs)), "evaluating")
			opts := rules.BatchOptions{
				OnProgress: func() { _ = bar.Add(1) },
			}
			opts.RuleID, _ = cmd.Flags().GetInt64("rule")

			stats, err := coordinator.ApplyBatch(ctx, articleIDs, opts)
			_ = bar.Finish()
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				// Interrupted mid-batch: report what did run before stopping.
				fmt.Println(cli.WarningStyle.Render("Apply interrupted, partial results:"))
			} else {
				fmt.Println(cli.TitleStyle.Render("Apply complete"))
			}
			fmt.Printf("  Articles evaluated: %d\n", stats.Evaluated)
			fmt.Printf("  Rules matched:      %d\n", stats.Matched)
			fmt.Printf("  Actions executed:   %s\n", cli.SuccessStyle.Render(fmt.Sprintf("%d", stats.ActionsExecuted)))
			if stats.ActionsFailed > 0 {
				fmt.Printf("  Actions failed:     %s\n", cli.ErrorStyle.Render(fmt.Sprintf("%d", stats.ActionsFailed)))
			}
			return nil
		},
	}

	cmd.Flags().Int64("rule", 0, "Apply a single rule by ID")
	cmd.Flags().Int64("feed", 0, "Restrict to one feed")
	cmd.Flags().Bool("unread", false, "Restrict to unread articles")
	cmd.Flags().Int("limit", 0, "Maximum number of articles to evaluate")
	return cmd
}

// drainNotifications logs notify-action deliveries; a richer UI would
// subscribe here instead.
func drainNotifications(notifier *notify.ChannelNotifier) {
	for n := range notifier.Subscribe() {
		slog.Info("rule notification",
			"article_id", n.ArticleID,
			"rule_id", n.RuleID,
			"priority", n.Priority)
	}
}
