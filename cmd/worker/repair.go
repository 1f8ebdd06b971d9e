package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/asso-lecture/asso-backend/internal/bootstrap"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Run one read-repair pass and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			report, err := app.Repairer.Run(cmd.Context())
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
			if err != nil {
				return fmt.Errorf("repair finished with %d errors", len(report.Errors))
			}
			return nil
		})
	},
}

var scheduleSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run read-repair on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := scheduleSpec
		if spec == "" {
			spec = cfg.Consistency.RepairSchedule
		}
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			s := consistency.NewScheduler(app.Repairer, spec, log)
			if err := s.Start(); err != nil {
				return err
			}
			<-cmd.Context().Done()
			log.Info("stopping repair scheduler")
			<-s.Stop().Done()
			return nil
		})
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "spec", "", "cron spec with seconds field (default: REPAIR_SCHEDULE)")
}
