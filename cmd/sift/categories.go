package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haldana/sift/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Manage feed categories",
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesCreateCmd())

	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			categories, err := db.GetCategories(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No categories"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, c := range categories {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n",
					c.ID, c.Name, truncateString(c.Description, 60))
			}
			return w.Flush()
		},
	}
}

func categoriesCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			description, _ := cmd.Flags().GetString("description")
			category, err := db.CreateCategory(cmd.Context(), args[0], description)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(
				fmt.Sprintf("Created category %q (ID %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().String("description", "", "Category description")
	return cmd
}

func tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "Manage tags",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			tags, err := db.GetTags(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get tags: %w", err)
			}

			if len(tags) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No tags"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tCREATED")
			for _, tag := range tags {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n",
					tag.ID, tag.Name, tag.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	})

	return cmd
}
