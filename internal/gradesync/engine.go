// Package gradesync pushes changed host grades to the platforms that
// launched each member.
package gradesync

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
	"github.com/mind-engage/mindengage-ltienrol/internal/metrics"
)

const (
	activityCompleted = "Completed"
	fullyGraded       = "FullyGraded"
)

type Engine struct {
	Store    Store
	Pusher   Pusher
	Settings config.Provider
	Now      Clock
	Logger   *slog.Logger
}

func New(store Store, pusher Pusher, settings config.Provider, now Clock, logger *slog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Store: store, Pusher: pusher, Settings: settings, Now: now, Logger: logger}
}

// Run syncs every enabled tool with grade sync on. Per-member problems are
// logged and skipped. A tool whose members cannot be listed is marked failed
// and the run moves on; only failing to list tools is an error.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	st, err := e.Settings.Settings(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("settings: %w", err)
	}
	if !st.AuthEnabled || !st.EnrolEnabled {
		e.Logger.Info("grade sync skipped, lti authentication or enrolment is disabled")
		return Report{Skipped: true}, nil
	}

	f := host.EnabledTools()
	on := true
	f.GradeSync = &on
	tools, err := e.Store.Tools(ctx, f)
	if err != nil {
		return Report{}, fmt.Errorf("list tools: %w", err)
	}

	var rep Report
	for _, t := range tools {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		tr, err := e.syncTool(ctx, t)
		rep.Tools = append(rep.Tools, tr)
		if err != nil {
			e.Logger.Warn("grade sync failed for tool", "tool", t.ID, "course", t.CourseID, "err", err)
			continue
		}
		e.Logger.Info("synced grades", "tool", t.ID, "course", t.CourseID,
			"users_processed", tr.UsersProcessed, "grades_sent", tr.GradesSent)
	}
	return rep, nil
}

func (e *Engine) syncTool(ctx context.Context, t host.Tool) (ToolReport, error) {
	tr := ToolReport{ToolID: t.ID, CourseID: t.CourseID}
	members, err := e.Store.Memberships(ctx, t.ID)
	if err != nil {
		tr.Failed = true
		return tr, fmt.Errorf("list members: %w", err)
	}
	now := e.Now().Unix()
	for _, m := range members {
		tr.UsersProcessed++
		metrics.SyncUsersProcessed.Inc()
		log := e.Logger.With("tool", t.ID, "user", m.UserID, "course", t.CourseID)

		if m.ExternalID == "" {
			log.Info("skipping member, no platform user id")
			continue
		}
		if t.EnrolPeriod > 0 && m.TimeEnd > 0 && m.TimeEnd < now {
			log.Info("skipping member, enrolment ended")
			continue
		}

		value, maxScore, ok := e.grade(ctx, log, t, m)
		if !ok {
			continue
		}
		if !gradesDiffer(value, m.LastGrade) {
			log.Info("not sent, grade unchanged", "grade", value)
			continue
		}

		sent, failed := e.push(ctx, log, m, ltiaas.Score{
			UserID:           m.ExternalID,
			ScoreGiven:       value,
			ScoreMaximum:     maxScore,
			ActivityProgress: activityCompleted,
			GradingProgress:  fullyGraded,
		})
		tr.PushFailures += failed
		if sent == 0 {
			continue
		}
		if err := e.Store.SetLastGrade(ctx, m.ID, value); err != nil {
			log.Warn("grade sent but not recorded", "err", err)
			continue
		}
		tr.GradesSent++
		metrics.SyncGradesSent.Inc()
	}
	return tr, nil
}

// grade computes the member's current grade and maximum. ok is false when
// there is nothing sendable; the reason has been logged.
func (e *Engine) grade(ctx context.Context, log *slog.Logger, t host.Tool, m host.Membership) (value, maxScore float64, ok bool) {
	hctx, err := e.Store.Context(ctx, t.ContextID)
	if err != nil {
		log.Warn("failed, invalid context", "context", t.ContextID, "err", err)
		return 0, 0, false
	}

	var g host.Grade
	switch hctx.Level {
	case host.ContextCourse:
		if t.GradeSyncCompletion {
			done, err := e.Store.CourseCompleted(ctx, t.CourseID, m.UserID)
			if err != nil {
				log.Warn("failed, course completion", "err", err)
				return 0, 0, false
			}
			if !done {
				log.Info("skipping member, course not completed")
				return 0, 0, false
			}
		}
		g, err = e.Store.CourseGrade(ctx, t.CourseID, m.UserID)
		if err != nil {
			log.Info("skipping member, no course grade", "err", err)
			return 0, 0, false
		}

	case host.ContextModule:
		if t.GradeSyncCompletion {
			st, err := e.Store.ModuleCompletion(ctx, hctx.InstanceID, m.UserID)
			if err != nil {
				log.Warn("failed, activity completion", "err", err)
				return 0, 0, false
			}
			if st != host.CompletionComplete && st != host.CompletionPass {
				log.Info("skipping member, activity not completed")
				return 0, 0, false
			}
		}
		items, err := e.Store.ModuleGradeItems(ctx, hctx.InstanceID, m.UserID)
		if err != nil || len(items) == 0 {
			log.Info("skipping member, activity has no grade items", "err", err)
			return 0, 0, false
		}
		it := items[0]
		if len(it.Grades) == 0 {
			log.Info("skipping member, no activity grade")
			return 0, 0, false
		}
		g = it.Grades[0]
		if g.Max == nil {
			gm := it.GradeMax
			g.Max = &gm
		}

	default:
		log.Warn("failed, invalid context level", "context", hctx.ID, "level", int(hctx.Level))
		return 0, 0, false
	}

	if g.Value == nil {
		log.Info("skipping member, grade is empty")
		return 0, 0, false
	}
	if g.Max == nil || *g.Max == 0 {
		log.Info("skipping member, grade maximum is zero")
		return 0, 0, false
	}
	return *g.Value, *g.Max, true
}

// push sends s with every credential of m and counts the outcomes.
func (e *Engine) push(ctx context.Context, log *slog.Logger, m host.Membership, s ltiaas.Score) (sent, failed int) {
	creds, err := e.Store.Credentials(ctx, m.ID)
	if err != nil {
		log.Warn("failed, cannot list credentials", "err", err)
		return 0, 0
	}
	if len(creds) == 0 {
		log.Info("not sent, member has no service credentials")
		return 0, 0
	}
	for _, c := range creds {
		if err := e.Pusher.PostScore(ctx, s, c.ServiceKey); err != nil {
			failed++
			metrics.ScorePushes.WithLabelValues("failure").Inc()
			log.Warn("failed to send grade", "credential", c.ID, "grade", s.ScoreGiven, "err", ltiaas.Message(err))
			continue
		}
		sent++
		metrics.ScorePushes.WithLabelValues("success").Inc()
		log.Info("sent grade", "credential", c.ID, "grade", s.ScoreGiven, "max", s.ScoreMaximum)
	}
	return sent, failed
}

// gradesDiffer compares at five decimals. A missing last grade always differs.
func gradesDiffer(value float64, last *float64) bool {
	if last == nil {
		return true
	}
	return round5(value) != round5(*last)
}

func round5(f float64) float64 { return math.Round(f*1e5) / 1e5 }
