package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic work.
type Task func(ctx context.Context) error

// SchedulerConfig configures the scheduler.
type SchedulerConfig struct {
	// Timeout bounds each run. Zero means one minute.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Scheduler runs named tasks on cron schedules. Overlapping runs of the same task are skipped.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	tasks   map[string]Task
	started bool
}

// NewScheduler builds a scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cronLogger{cfg.Logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
		tasks:   map[string]Task{},
	}
}

// Register adds a task under spec, e.g. "@hourly" or "15 2 * * *".
func (s *Scheduler) Register(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %s already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(name, task) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.tasks[name] = task
	s.logger.Sugar().Infow("task scheduled", "task", name, "spec", spec)
	return nil
}

// RunNow executes a registered task synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	task, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("task %s not registered", name)
	}
	return s.run(name, task)
}

// Start begins dispatching. Safe to call once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts scheduling and waits for running tasks or ctx expiry.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, task Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := task(ctx)
	if err != nil {
		s.logger.Sugar().Warnw("task failed", "task", name, "duration", time.Since(start), "error", err)
		return err
	}
	s.logger.Sugar().Debugw("task finished", "task", name, "duration", time.Since(start))
	return nil
}

type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
