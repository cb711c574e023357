package gradesync

import (
	"context"
	"time"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
)

type Clock func() time.Time

// Store is the read side of the host gradebook plus the membership rows the
// engine updates.
type Store interface {
	Tools(ctx context.Context, f host.ToolFilter) ([]host.Tool, error)
	Memberships(ctx context.Context, toolID int64) ([]host.Membership, error)
	Credentials(ctx context.Context, membershipID int64) ([]host.Credential, error)
	SetLastGrade(ctx context.Context, membershipID int64, grade float64) error

	Context(ctx context.Context, id int64) (host.Context, error)
	CourseCompleted(ctx context.Context, courseID, userID int64) (bool, error)
	CourseGrade(ctx context.Context, courseID, userID int64) (host.Grade, error)
	ModuleCompletion(ctx context.Context, cmID, userID int64) (host.CompletionState, error)
	ModuleGradeItems(ctx context.Context, cmID, userID int64) ([]host.GradeItem, error)
}

// Pusher sends one score with one credential.
type Pusher interface {
	PostScore(ctx context.Context, s ltiaas.Score, serviceKey string) error
}

type ToolReport struct {
	ToolID         int64
	CourseID       int64
	UsersProcessed int
	GradesSent     int
	PushFailures   int
	Failed         bool // members could not be listed
}

type Report struct {
	Skipped bool // plugin or auth method disabled
	Tools   []ToolReport
}

func (r Report) GradesSent() int {
	n := 0
	for _, t := range r.Tools {
		n += t.GradesSent
	}
	return n
}

func (r Report) FailedTools() int {
	n := 0
	for _, t := range r.Tools {
		if t.Failed {
			n++
		}
	}
	return n
}
