// Command pgbus runs the broker: the HTTP server, schema migrations, the
// janitor, and client credential management.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pgbus",
	Short:         "pgbus is a durable pub/sub broker backed by PostgreSQL",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log.Logger = log.With().Str("service", "pgbus").Logger()

		// Pretty logging for local dev
		if os.Getenv("PGBUS_ENV") != "prod" {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
