package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haldana/sift/internal/cli"
	"github.com/haldana/sift/internal/service"
)

func articlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article"},
		Short:   "Browse stored articles",
	}

	cmd.AddCommand(articlesListCmd())
	cmd.AddCommand(articlesShowCmd())

	return cmd
}

func articlesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			filter := service.ArticleFilter{}
			if feedID, _ := cmd.Flags().GetInt64("feed"); feedID > 0 {
				filter.FeedID = &feedID
			}
			filter.UnreadOnly, _ = cmd.Flags().GetBool("unread")
			filter.Limit, _ = cmd.Flags().GetInt("limit")

			articles, err := db.GetArticles(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to get articles: %w", err)
			}

			if len(articles) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No articles"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tPUBLISHED\tSTATE")
			for _, a := range articles {
				published := ""
				if !a.PublishedAt.IsZero() {
					published = a.PublishedAt.Format("2006-01-02")
				}
				var state []string
				if a.IsRead {
					state = append(state, "read")
				}
				if a.IsStarred {
					state = append(state, "starred")
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					a.ID, truncateString(a.Title, 50), truncateString(a.Author, 20),
					published, strings.Join(state, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64("feed", 0, "Filter by feed ID")
	cmd.Flags().Bool("unread", false, "Show only unread articles")
	cmd.Flags().Int("limit", 50, "Maximum number of articles")
	return cmd
}

func articlesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an article's evaluation snapshot",
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

			article, err := db.GetArticleByID(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("article %d not found", id)
			}

			fmt.Println(cli.TitleStyle.Render(article.Title))
			fmt.Printf("  ID:         %d (feed %d)\n", article.ID, article.FeedID)
			fmt.Printf("  Author:     %s\n", article.Author)
			fmt.Printf("  Link:       %s\n", article.Link)
			if !article.PublishedAt.IsZero() {
				fmt.Printf("  Published:  %s\n", article.PublishedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("  Categories: %s\n", strings.Join(article.Categories, ", "))
			fmt.Printf("  Tags:       %s\n", strings.Join(article.Tags, ", "))
			fmt.Printf("  Read:       %v   Starred: %v\n", article.IsRead, article.IsStarred)

			applied, err := db.GetAppliedTags(cmd.Context(), article.ID)
			if err != nil {
				return fmt.Errorf("failed to get tag provenance: %w", err)
			}
			for _, at := range applied {
				source := at.AppliedBy
				if at.RuleID != nil {
					source = fmt.Sprintf("%s (rule %d)", at.AppliedBy, *at.RuleID)
				}
				fmt.Printf("  Tag %d:      applied by %s, confidence %.2f\n",
					at.TagID, source, at.Confidence)
			}

			if article.Summary != "" {
				fmt.Printf("\n%s\n", article.Summary)
			}
			return nil
		},
	}
}
