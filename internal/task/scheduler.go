package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-ltienrol/internal/metrics"
)

type entry struct {
	task     Task
	interval time.Duration
	next     time.Time
}

// Scheduler runs its tasks one after another, each on its own interval.
type Scheduler struct {
	Locker Locker
	Logger *slog.Logger
	// Tick is how often due tasks are looked for.
	Tick time.Duration
	// LockTTL bounds how long a crashed run can hold its lock.
	LockTTL time.Duration
	Now     func() time.Time

	entries []*entry
}

func NewScheduler(locker Locker, logger *slog.Logger) *Scheduler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{Locker: locker, Logger: logger, Tick: time.Minute, LockTTL: 30 * time.Minute, Now: time.Now}
}

// Add registers t. Its first run is due at once.
func (s *Scheduler) Add(t Task, interval time.Duration) {
	s.entries = append(s.entries, &entry{task: t, interval: interval})
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runDue(ctx)
	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	for _, e := range s.entries {
		if ctx.Err() != nil {
			return
		}
		now := s.Now()
		if now.Before(e.next) {
			continue
		}
		e.next = now.Add(e.interval)
		_ = s.RunOnce(ctx, e.task)
	}
}

// RunOnce runs t under its lock. A run skipped because another holds the
// lock returns ErrLocked.
func (s *Scheduler) RunOnce(ctx context.Context, t Task) error {
	log := s.Logger.With("task", t.Name())
	release, err := s.Locker.Acquire(ctx, t.Name(), s.LockTTL)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			metrics.TaskRuns.WithLabelValues(t.Name(), "locked").Inc()
			log.Info("task skipped, already running")
		} else {
			metrics.TaskRuns.WithLabelValues(t.Name(), "error").Inc()
			log.Error("task lock failed", "err", err)
		}
		return err
	}
	defer release()

	start := time.Now()
	if err := t.Run(ctx); err != nil {
		metrics.TaskRuns.WithLabelValues(t.Name(), "error").Inc()
		log.Error("task failed", "err", err, "took", time.Since(start))
		return err
	}
	metrics.TaskRuns.WithLabelValues(t.Name(), "ok").Inc()
	log.Info("task done", "took", time.Since(start))
	return nil
}
