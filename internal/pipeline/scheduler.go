package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner performs one ingestion run.
type Runner interface {
	RunOnce(ctx context.Context) (RunResult, error)
}

// Scheduler triggers runs on a cron schedule. A trigger that fires while the
// previous run is still active is skipped.
type Scheduler struct {
	schedule cron.Schedule
	spec     string
	runner   Runner
	logger   *slog.Logger
}

// NewScheduler parses spec, a standard five-field cron expression or a
// descriptor such as "@every 5m" or "@hourly".
func NewScheduler(spec string, r Runner, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse run schedule %q: %w", spec, err)
	}
	return &Scheduler{schedule: schedule, spec: spec, runner: r, logger: logger}, nil
}

// Run blocks until ctx is cancelled, then waits for an active run to return.
// Runs receive ctx, so cancellation also aborts them.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		// Run errors are logged and counted by the orchestrator.
		_, _ = s.runner.RunOnce(ctx)
	}))

	c.Start()
	s.logger.Info("scheduler started", "schedule", s.spec)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
