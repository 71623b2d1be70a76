package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haldana/sift/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render("Database is up to date"))
			return nil
		},
	}
}
