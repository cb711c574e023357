// Package admission decides whether a user may be enrolled through a tool.
package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

type Outcome int

const (
	Success Outcome = iota
	MaxEnrolledReached
	NotStarted
	Finished
	Failed // storage error, see Result.Err
)

// Reason is the message key shown to the user for a denied admission.
func (o Outcome) Reason() string {
	switch o {
	case Success:
		return "success"
	case MaxEnrolledReached:
		return "maxenrolledreached"
	case NotStarted:
		return "enrolmentnotstarted"
	case Finished:
		return "enrolmentfinished"
	default:
		return "enrolmentfailed"
	}
}

func (o Outcome) String() string { return o.Reason() }

type Result struct {
	Outcome   Outcome
	Enrolment host.UserEnrolment // set on Success
	Err       error
}

func (r Result) Admitted() bool { return r.Outcome == Success }

type Store interface {
	Enrolment(ctx context.Context, enrolID, userID int64) (host.UserEnrolment, error)
	CountEnrolments(ctx context.Context, enrolID int64) (int, error)
	Enrol(ctx context.Context, e host.UserEnrolment) error
}

type Controller struct {
	Store Store
}

func New(store Store) *Controller { return &Controller{Store: store} }

// Evaluate applies the admission rules in order and enrols the user when
// they pass. An existing enrolment is always a success.
func (c *Controller) Evaluate(ctx context.Context, tool host.Tool, userID, now int64) Result {
	if e, err := c.Store.Enrolment(ctx, tool.EnrolID, userID); err == nil {
		return Result{Outcome: Success, Enrolment: e}
	} else if !errors.Is(err, host.ErrNotFound) {
		return Result{Outcome: Failed, Err: err}
	}

	if tool.MaxEnrolled > 0 {
		n, err := c.Store.CountEnrolments(ctx, tool.EnrolID)
		if err != nil {
			return Result{Outcome: Failed, Err: err}
		}
		if n >= tool.MaxEnrolled {
			return Result{Outcome: MaxEnrolledReached}
		}
	}
	if tool.EnrolStartDate > 0 && now < tool.EnrolStartDate {
		return Result{Outcome: NotStarted}
	}
	if tool.EnrolEndDate > 0 && now > tool.EnrolEndDate {
		return Result{Outcome: Finished}
	}

	e := host.UserEnrolment{
		EnrolID:   tool.EnrolID,
		UserID:    userID,
		TimeStart: TimeStart(now),
	}
	if tool.EnrolPeriod > 0 {
		e.TimeEnd = now + tool.EnrolPeriod
	}
	if err := c.Store.Enrol(ctx, e); err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("enrol: %w", err)}
	}
	return Result{Outcome: Success, Enrolment: e}
}

// TimeStart rounds now down to a 100 second boundary minus one second. The
// host caches enrolment state per request with second precision; a start
// time equal to now would read as "not started yet" until the cache expires.
func TimeStart(now int64) int64 {
	return (now/100)*100 - 1
}
