package bootstrap

import (
	"context"
	"fmt"

	"github.com/asso-lecture/asso-backend/config"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/asso-lecture/asso-backend/internal/storage/memory"
	"github.com/asso-lecture/asso-backend/internal/storage/mongo"
	"github.com/asso-lecture/asso-backend/internal/storage/postgres"
)

// OpenStore connects the backend named by cfg.Store.Backend. With
// DB_AUTO_MIGRATE the postgres schema is applied before returning.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		conn, err := postgres.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return storage.Store{}, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, conn.DB); err != nil {
				_ = conn.Close()
				return storage.Store{}, fmt.Errorf("migrate: %w", err)
			}
			log.Info("database schema applied")
		}
		log.Info("store connected", "backend", "postgres", "driver", cfg.Database.Driver)
		return postgres.NewStore(conn.DB).Storage(conn.Close), nil

	case "mongo":
		s, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return storage.Store{}, err
		}
		log.Info("store connected", "backend", "mongo", "database", cfg.Mongo.Database)
		return s.Storage(), nil

	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New().Storage(), nil
	}
	return storage.Store{}, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
