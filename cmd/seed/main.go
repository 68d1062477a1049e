// Command seed loads demo users, roster assignments and metric history.
//
// Usage:
//
//	seed --days 14 --password secret123
//	seed --migrate=false
package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"backend-optikick/internal/config"
	"backend-optikick/internal/db"
	"backend-optikick/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		days     int
		password string
		migrate  bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo users and metric history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be positive")
			}
			cfg := config.Load()
			logger := logging.New(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			pool, err := db.ConnectPostgres(cfg)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if migrate {
				if err := db.Migrate(ctx, pool); err != nil {
					return err
				}
			}
			start := time.Now()
			res, err := Seed(ctx, pool, Options{Days: days, Password: password, Now: start})
			if err != nil {
				return err
			}
			logger.Info().
				Int("users", res.Users).
				Int("samples", res.Samples).
				Dur("duration", time.Since(start).Round(time.Millisecond)).
				Msg("seed finished")
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "days of metric history per player")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply the schema before seeding")
	cmd.Flags().StringVar(&password, "password", "password", "password for every demo account")
	return cmd
}
