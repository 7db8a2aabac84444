package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"insights-backend/internal/bootstrap"
	"insights-backend/internal/shared/storage/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, bootstrap.DBOptions(cfg, db.ProfileMigrate))
		if err != nil {
			return eris.Wrap(err, "connect database")
		}
		defer sqlDB.Close()

		return db.RunMigrations(ctx, sqlDB)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
