// Command worker runs maintenance jobs against the association store:
// read-repair, scheduled repair, schema migration and seeding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asso-lecture/asso-backend/config"
	"github.com/asso-lecture/asso-backend/internal/bootstrap"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log *logger.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "worker",
	Short:         "Maintenance jobs for the association backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if log, err = logger.New(cfg.App.Environment, cfg.App.LogLevel); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedAdminCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(watchCmd)
}

// withApp opens the shared dependencies for the duration of fn.
func withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	app, err := bootstrap.NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close app", "error", err)
		}
	}()
	return fn(app)
}
