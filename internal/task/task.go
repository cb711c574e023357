// Package task runs the scheduled jobs.
package task

import (
	"context"
	"log/slog"

	"github.com/mind-engage/mindengage-ltienrol/internal/gradesync"
	"github.com/mind-engage/mindengage-ltienrol/internal/unenrol"
)

type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type funcTask struct {
	name string
	fn   func(context.Context) error
}

func (t funcTask) Name() string { return t.name }
func (t funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

func Func(name string, fn func(context.Context) error) Task { return funcTask{name, fn} }

// SyncGrades wraps the grade sync engine.
func SyncGrades(e *gradesync.Engine, logger *slog.Logger) Task {
	return Func("sync_grades", func(ctx context.Context) error {
		rep, err := e.Run(ctx)
		if err != nil {
			return err
		}
		if !rep.Skipped {
			logger.Info("grade sync finished", "tools", len(rep.Tools), "grades_sent", rep.GradesSent(), "failed_tools", rep.FailedTools())
		}
		return nil
	})
}

// UnenrolExpired wraps the expired member job.
func UnenrolExpired(j *unenrol.Job, logger *slog.Logger) Task {
	return Func("unenrol_expired", func(ctx context.Context) error {
		rep, err := j.Run(ctx)
		if err != nil {
			return err
		}
		if !rep.Skipped {
			logger.Info("unenrol finished", "unenrolled", rep.Unenrolled, "failed", rep.Failed, "failed_tools", rep.ToolsFailed)
		}
		return nil
	})
}
