package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinyyama/inventory-backend/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(*cobra.Command, []string) error {
			conn, err := db.Connect(a.cfg)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			if err := db.Migrate(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.log.Info("migration complete")
			return nil
		},
	}
}
