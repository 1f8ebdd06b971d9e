package consistency

import (
	"context"
	"fmt"
	"time"

	"github.com/asso-lecture/asso-backend/internal/platform/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the repairer on a cron spec with a seconds field,
// e.g. "0 0 3 * * *" for 03:00 every night.
type Scheduler struct {
	cron     *cron.Cron
	repairer *Repairer
	spec     string
	timeout  time.Duration
	log      *logger.Logger
}

func NewScheduler(rp *Repairer, spec string, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		repairer: rp,
		spec:     spec,
		timeout:  10 * time.Minute,
		log:      log.With("component", "repair-scheduler"),
	}
}

// Start registers the repair job and starts the cron loop in its own
// goroutine.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("invalid repair schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info("repair scheduler started", "schedule", s.spec)
	return nil
}

// Stop halts scheduling; the returned context is done once a running job
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.repairer.Run(ctx); err != nil {
		s.log.Error("scheduled repair failed", "error", err)
	}
}
