package main

import (
	"fmt"

	"github.com/asso-lecture/asso-backend/internal/storage/mongo"
	"github.com/asso-lecture/asso-backend/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema (postgres) or indexes (mongo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch cfg.Store.Backend {
		case "postgres":
			conn, err := postgres.NewConnection(ctx, &cfg.Database)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := postgres.Migrate(ctx, conn.DB); err != nil {
				return err
			}
		case "mongo":
			// Connect ensures the indexes.
			s, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
			if err != nil {
				return err
			}
			defer s.Storage().Close()
		default:
			return fmt.Errorf("nothing to migrate for store backend %q", cfg.Store.Backend)
		}
		log.Info("migration applied", "backend", cfg.Store.Backend)
		return nil
	},
}
