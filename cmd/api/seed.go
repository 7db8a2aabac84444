package main

import (
	"errors"

	"github.com/spf13/cobra"

	"insights-backend/internal/bootstrap"
	"insights-backend/internal/insights"
	"insights-backend/internal/shared/telemetry"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the bundled sample insights into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, sqlDB, err := bootstrap.BuildRepos(ctx, cfg)
		if err != nil {
			return err
		}
		if sqlDB == nil {
			return errors.New("seed requires DATABASE_URL")
		}
		defer sqlDB.Close()

		recs, err := insights.LoadSeed()
		if err != nil {
			return err
		}
		n, err := svc.Seed(ctx, recs)
		if err != nil {
			return err
		}
		telemetry.Info("seed.done", map[string]any{"insights": n})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
