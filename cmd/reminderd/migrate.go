package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hray3182/taskreminder/internal/config"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			b, err := openBackend(context.Background(), cfg)
			if err != nil {
				return err
			}
			b.close()
			return nil
		},
	}
}
