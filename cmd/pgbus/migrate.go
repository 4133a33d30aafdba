package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pgbus/pgbus/internal/config"
	"github.com/pgbus/pgbus/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log.Info().Msg("running schema migrations")
		return db.Migrate(cfg.DatabaseURL)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
