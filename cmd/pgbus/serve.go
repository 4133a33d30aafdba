package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pgbus/pgbus/internal/broker"
	"github.com/pgbus/pgbus/internal/clients"
	"github.com/pgbus/pgbus/internal/config"
	"github.com/pgbus/pgbus/internal/db"
	"github.com/pgbus/pgbus/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx := context.Background()
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		srv := &httpapi.Server{
			DB: pool,
			Broker: broker.New(pool, broker.Defaults{
				MaxDeliveryAttempts: cfg.SubscriptionMaxAttempts,
				BackoffMinSeconds:   cfg.SubscriptionBackoffMinSeconds,
				BackoffMaxSeconds:   cfg.SubscriptionBackoffMaxSeconds,
			}),
			Clients: clients.NewStore(pool, clients.TokenConfig{
				SecretKey: cfg.AuthSecretKey,
				TokenTTL:  time.Duration(cfg.AuthTokenExpireMinutes) * time.Minute,
			}),
			AuthEnabled: cfg.AuthEnabled,
		}
		if !cfg.AuthEnabled {
			log.Warn().Msg("SECURITY WARNING: auth disabled - all requests are accepted without credentials")
		}

		httpServer := &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      srv.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("HTTP server failed")
			}
		}()

		// Graceful shutdown on SIGINT/SIGTERM
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		log.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
