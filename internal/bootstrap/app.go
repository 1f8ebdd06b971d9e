package bootstrap

import (
	"context"
	"errors"

	"github.com/asso-lecture/asso-backend/config"
	"github.com/asso-lecture/asso-backend/internal/consistency"
	"github.com/asso-lecture/asso-backend/internal/metrics"
	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/asso-lecture/asso-backend/internal/storage"
	"github.com/redis/go-redis/v9"
)

// App holds the long-lived dependencies shared by the api server and the
// worker commands.
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Store    storage.Store
	Redis    *redis.Client
	Reporter consistency.Reporter
	Rules    *consistency.Rules
	Repairer *consistency.Repairer
}

func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rdb, err := OpenRedis(ctx, cfg.Redis)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if rdb == nil {
		log.Info("redis disabled, inconsistency reports kept in memory")
	}

	m := metrics.New()
	rep := NewReporter(rdb, cfg.Consistency.InconsistencyCap)
	rules := consistency.New(st,
		consistency.WithLogger(log),
		consistency.WithMetrics(m),
		consistency.WithReporter(rep),
		consistency.WithRecheckRemainingLoans(cfg.Consistency.RecheckLoans),
	)

	return &App{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		Store:    st,
		Redis:    rdb,
		Reporter: rep,
		Rules:    rules,
		Repairer: consistency.NewRepairer(st, log, m),
	}, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store.Close != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
