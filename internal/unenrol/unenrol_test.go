package unenrol_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-ltienrol/internal/admission"
	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/db"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/store"
	"github.com/mind-engage/mindengage-ltienrol/internal/unenrol"
)

var on = config.Static{AuthEnabled: true, EnrolEnabled: true}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// A member admitted with a one day period is gone once the job runs after it.
func TestExpiredMemberIsRemoved(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	st := store.New(dbh)

	ctxID, err := st.CreateContext(ctx, host.Context{Level: host.ContextCourse, InstanceID: 7, CourseID: 7})
	require.NoError(t, err)
	in := host.DefaultToolInput(ctxID)
	in.EnrolPeriod = 86400
	tool, err := st.CreateTool(ctx, 7, in, 0)
	require.NoError(t, err)

	uid, err := st.CreateUser(ctx, host.User{Username: "enrol_ltia", Auth: "lti", Confirmed: true})
	require.NoError(t, err)
	keep, err := st.CreateUser(ctx, host.User{Username: "enrol_ltib", Auth: "lti", Confirmed: true})
	require.NoError(t, err)

	const t0 = int64(1_700_000_000)
	require.True(t, admission.New(st).Evaluate(ctx, tool, uid, t0).Admitted())
	require.True(t, admission.New(st).Evaluate(ctx, tool, keep, t0+50000).Admitted())
	for _, u := range []int64{uid, keep} {
		mid, err := st.CreateMembership(ctx, host.Membership{ToolID: tool.ID, UserID: u, ExternalID: "x", LastAccess: t0, TimeCreated: t0})
		require.NoError(t, err)
		require.NoError(t, st.AddCredential(ctx, mid, "svc", t0))
	}

	job := unenrol.New(st, on, quiet())
	job.Now = func() time.Time { return time.Unix(t0+90000, 0) }
	rep, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Unenrolled)

	_, err = st.Enrolment(ctx, tool.EnrolID, uid)
	assert.ErrorIs(t, err, host.ErrNotFound)
	_, err = st.Membership(ctx, tool.ID, uid)
	assert.ErrorIs(t, err, host.ErrNotFound)

	_, err = st.Membership(ctx, tool.ID, keep)
	assert.NoError(t, err, "member within the period stays")
}

type fakeStore struct {
	tools      []host.Tool
	members    []host.Membership
	removed    []int64
	failUser   int64
	failTool   int64
	lastFilter host.ToolFilter
}

func (s *fakeStore) Tools(_ context.Context, f host.ToolFilter) ([]host.Tool, error) {
	s.lastFilter = f
	return s.tools, nil
}

func (s *fakeStore) Memberships(_ context.Context, toolID int64) ([]host.Membership, error) {
	if s.failTool != 0 && toolID == s.failTool {
		return nil, errors.New("db hiccup")
	}
	return s.members, nil
}

func (s *fakeStore) Unenrol(_ context.Context, _ host.Tool, userID int64) error {
	if userID == s.failUser {
		return errors.New("locked")
	}
	s.removed = append(s.removed, userID)
	return nil
}

func TestJobSkipsOpenEndedAndContinuesOnFailure(t *testing.T) {
	st := &fakeStore{
		tools: []host.Tool{{ID: 1, EnrolPeriod: 10}},
		members: []host.Membership{
			{UserID: 1, TimeEnd: 0},
			{UserID: 2, TimeEnd: 50},
			{UserID: 3, TimeEnd: 50},
			{UserID: 4, TimeEnd: 500},
		},
		failUser: 2,
	}
	job := unenrol.New(st, on, quiet())
	job.Now = func() time.Time { return time.Unix(100, 0) }

	rep, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, st.removed)
	assert.Equal(t, unenrol.Report{Unenrolled: 1, Failed: 1}, rep)
	assert.True(t, st.lastFilter.EnrolPeriodSet)
	require.NotNil(t, st.lastFilter.Status)
}

func TestJobSkipsWhenDisabled(t *testing.T) {
	st := &fakeStore{tools: []host.Tool{{ID: 1}}, members: []host.Membership{{UserID: 1, TimeEnd: 1}}}
	rep, err := unenrol.New(st, config.Static{AuthEnabled: true}, quiet()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Empty(t, st.removed)
}

func TestJobContinuesPastToolWithUnlistableMembers(t *testing.T) {
	st := &fakeStore{
		tools:    []host.Tool{{ID: 1, EnrolPeriod: 10}, {ID: 2, EnrolPeriod: 10}},
		members:  []host.Membership{{UserID: 3, TimeEnd: 50}},
		failTool: 1,
	}
	job := unenrol.New(st, on, quiet())
	job.Now = func() time.Time { return time.Unix(100, 0) }

	rep, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, st.removed)
	assert.Equal(t, unenrol.Report{Unenrolled: 1, ToolsFailed: 1}, rep)
}
