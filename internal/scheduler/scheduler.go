package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/service"
)

// Sweeper runs one auto-escalation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Scheduler triggers the escalation sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// New registers the sweep under schedule, a six-field cron expression with seconds.
func New(sweeper Sweeper, schedule string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Scheduler{cron: c, sweeper: sweeper, logger: logger, timeout: 5 * time.Minute}
	if _, err := c.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins firing scheduled sweeps.
func (s *Scheduler) Start() {
	s.logger.Info("starting escalation scheduler")
	s.cron.Start()
}

// Stop waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("escalation scheduler stopped")
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// run skips a tick while the previous sweep is still going.
func (s *Scheduler) run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous escalation sweep still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled escalation sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled escalation sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
}
