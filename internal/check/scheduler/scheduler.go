// Package scheduler runs the monitoring sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"licensecheck/internal/check"
)

// Sweeper runs one sweep. *check.Service satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context) (*check.SweepSummary, error)
}

// Scheduler triggers sweeps. A tick that fires while the previous sweep is
// still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New parses spec (standard five-field cron or a descriptor such as @weekly).
func New(spec string, sweeper Sweeper, logger *slog.Logger) (*Scheduler, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("sweeper is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Scheduler{sweeper: sweeper, logger: logger}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling. Sweeps run under ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.InfoContext(ctx, "sweep scheduler started", "next_run", s.cron.Entries()[0].Next)
}

// Stop cancels a running sweep between agents and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// RunNow triggers a sweep outside the schedule, synchronously.
func (s *Scheduler) RunNow() {
	s.run()
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled sweep failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "scheduled sweep finished",
		"sweep_id", summary.ID,
		"skipped", summary.Skipped,
		"checked", summary.Checked,
		"alerts", summary.Alerts,
		"errors", summary.Errors,
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
