package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fenwick-labs/scrivener/internal/store"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			databaseURL := v.GetString("database.url")
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := cmd.Context()
			db, err := store.New(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			if err := db.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			cmd.Println("schema applied")
			return nil
		},
	}
}
