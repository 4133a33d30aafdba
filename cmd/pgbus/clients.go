package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgbus/pgbus/internal/clients"
	"github.com/pgbus/pgbus/internal/config"
	"github.com/pgbus/pgbus/internal/db"
)

var createClientActive bool

var createClientCmd = &cobra.Command{
	Use:   "create-client NAME [SCOPES]",
	Short: "Create an API client and print its credentials",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		scopes := "*"
		if len(args) == 2 {
			scopes = args[1]
		}

		ctx := context.Background()
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := clients.NewStore(pool, clients.TokenConfig{
			SecretKey: cfg.AuthSecretKey,
			TokenTTL:  time.Duration(cfg.AuthTokenExpireMinutes) * time.Minute,
		})
		result, err := store.Create(ctx, args[0], scopes, createClientActive)
		if err != nil {
			return err
		}

		fmt.Printf("client_id=%s\n", result.ID)
		fmt.Printf("client_secret=%s\n", result.Secret)
		return nil
	},
}

var generateSecretCmd = &cobra.Command{
	Use:   "generate-secret",
	Short: "Generate a random secret suitable for PGBUS_AUTH_SECRET_KEY",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("new_secret=%s\n", clients.GenerateSecret())
	},
}

func init() {
	createClientCmd.Flags().BoolVar(&createClientActive, "active", true, "create the client enabled")
	rootCmd.AddCommand(createClientCmd)
	rootCmd.AddCommand(generateSecretCmd)
}
