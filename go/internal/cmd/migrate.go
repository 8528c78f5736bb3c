package main

import (
	"fmt"

	timersdb "github.com/mcdev12/fieldboss/go/internal/timers/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the timers table and its change trigger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.File, false)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx := cmd.Context()
		pool, err := setupDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		if _, err := pool.Exec(ctx, timersdb.Schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		log.Info().Str("database", cfg.Database.Database).Msg("schema applied")
		return nil
	},
}
