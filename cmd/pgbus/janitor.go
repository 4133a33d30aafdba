package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pgbus/pgbus/internal/broker"
	"github.com/pgbus/pgbus/internal/config"
	"github.com/pgbus/pgbus/internal/db"
)

var janitorOnce bool

var janitorCmd = &cobra.Command{
	Use:   "janitor",
	Short: "Run the janitor sweeps: unlock stuck leases, delete old acked messages",
	Long: `Runs both janitor sweeps against the store. By default the sweeps run
on the schedule from PGBUS_JANITOR_SCHEDULE until interrupted; with --once
they run a single time and exit. Both sweeps are idempotent, so overlapping
janitor processes are safe.`,
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

		b := broker.New(pool, broker.Defaults{
			MaxDeliveryAttempts: cfg.SubscriptionMaxAttempts,
			BackoffMinSeconds:   cfg.SubscriptionBackoffMinSeconds,
			BackoffMaxSeconds:   cfg.SubscriptionBackoffMaxSeconds,
		})

		sweep := func() {
			if _, err := b.UnlockStuck(ctx, cfg.JanitorLockTimeout); err != nil {
				log.Error().Err(err).Msg("unlock sweep failed")
			}
			if _, err := b.DeleteAcked(ctx, cfg.JanitorRetentionAge); err != nil {
				log.Error().Err(err).Msg("acked gc sweep failed")
			}
		}

		if janitorOnce {
			log.Info().Msg("running janitor sweeps once")
			sweep()
			return nil
		}

		c := cron.New()
		if _, err := c.AddFunc(cfg.JanitorCronSchedule, sweep); err != nil {
			return err
		}
		log.Info().Str("schedule", cfg.JanitorCronSchedule).Msg("janitor started")
		c.Start()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		<-c.Stop().Done()
		log.Info().Msg("janitor stopped")
		return nil
	},
}

func init() {
	janitorCmd.Flags().BoolVar(&janitorOnce, "once", false, "run the sweeps once and exit")
	rootCmd.AddCommand(janitorCmd)
}
