// Package unenrol removes members whose enrolment period has run out.
package unenrol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/metrics"
)

type Store interface {
	Tools(ctx context.Context, f host.ToolFilter) ([]host.Tool, error)
	Memberships(ctx context.Context, toolID int64) ([]host.Membership, error)
	Unenrol(ctx context.Context, t host.Tool, userID int64) error
}

type Report struct {
	Skipped    bool
	Unenrolled  int
	Failed      int
	ToolsFailed int
}

type Job struct {
	Store    Store
	Settings config.Provider
	Now      func() time.Time
	Logger   *slog.Logger
}

func New(store Store, settings config.Provider, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{Store: store, Settings: settings, Now: time.Now, Logger: logger}
}

func (j *Job) Run(ctx context.Context) (Report, error) {
	st, err := j.Settings.Settings(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("settings: %w", err)
	}
	if !st.AuthEnabled || !st.EnrolEnabled {
		j.Logger.Info("unenrol skipped, lti authentication or enrolment is disabled")
		return Report{Skipped: true}, nil
	}

	f := host.EnabledTools()
	f.EnrolPeriodSet = true
	tools, err := j.Store.Tools(ctx, f)
	if err != nil {
		return Report{}, fmt.Errorf("list tools: %w", err)
	}

	now := j.Now().Unix()
	var rep Report
	for _, t := range tools {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		members, err := j.Store.Memberships(ctx, t.ID)
		if err != nil {
			rep.ToolsFailed++
			j.Logger.Warn("unenrol failed for tool, cannot list members", "tool", t.ID, "course", t.CourseID, "err", err)
			continue
		}
		for _, m := range members {
			if m.TimeEnd == 0 || m.TimeEnd >= now {
				continue
			}
			if err := j.Store.Unenrol(ctx, t, m.UserID); err != nil {
				rep.Failed++
				j.Logger.Warn("unenrol failed", "tool", t.ID, "user", m.UserID, "err", err)
				continue
			}
			rep.Unenrolled++
			metrics.MembersUnenrolled.Inc()
			j.Logger.Info("unenrolled expired member", "tool", t.ID, "user", m.UserID, "course", t.CourseID, "timeend", m.TimeEnd)
		}
	}
	return rep, nil
}
