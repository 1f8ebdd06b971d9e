package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/asso-lecture/asso-backend/internal/bootstrap"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/spf13/cobra"
)

var watchRecent int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print inconsistency reports as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			rep, ok := app.Reporter.(*consistency.RedisReporter)
			if !ok {
				return fmt.Errorf("watch needs REDIS_ADDR")
			}
			enc := json.NewEncoder(os.Stdout)

			if watchRecent > 0 {
				recent, err := rep.Recent(cmd.Context(), watchRecent)
				if err != nil {
					return err
				}
				for i := len(recent) - 1; i >= 0; i-- {
					_ = enc.Encode(recent[i])
				}
			}

			ch, err := rep.Subscribe(cmd.Context())
			if err != nil {
				return err
			}
			for inc := range ch {
				if err := enc.Encode(inc); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchRecent, "recent", 0, "print this many stored reports first")
}
