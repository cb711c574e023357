package launch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-ltienrol/internal/admission"
	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/identity"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
	"github.com/mind-engage/mindengage-ltienrol/internal/session"
)

/* ---------------- fakes ---------------- */

type fakeGateway struct {
	tok ltiaas.IDToken
	err error
}

func (g fakeGateway) IDToken(context.Context, string) (ltiaas.IDToken, error) { return g.tok, g.err }

type fakeResolver struct{ user host.User }

func (r fakeResolver) Resolve(context.Context, host.Tool, identity.Claims) (host.User, error) {
	return r.user, nil
}

type fakeAdmitter struct{ res admission.Result }

func (a fakeAdmitter) Evaluate(context.Context, host.Tool, int64, int64) admission.Result { return a.res }

type roleAssignment struct{ role, user, ctx int64 }

type fakeStore struct {
	tool        host.Tool
	toolErr     error
	hctx        host.Context
	ctxErr      error
	roles       []roleAssignment
	memberships map[int64]host.Membership
	touched     []string
	credentials []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tool: host.Tool{ID: 5, EnrolID: 50, ContextID: 500, CourseID: 9, RoleInstructor: 3, RoleLearner: 5},
		hctx: host.Context{ID: 500, Level: host.ContextCourse, InstanceID: 9, CourseID: 9},
		memberships: map[int64]host.Membership{},
	}
}

func (s *fakeStore) Tool(_ context.Context, id int64) (host.Tool, error) {
	if s.toolErr != nil {
		return host.Tool{}, s.toolErr
	}
	if id != s.tool.ID {
		return host.Tool{}, host.ErrNotFound
	}
	return s.tool, nil
}

func (s *fakeStore) Context(context.Context, int64) (host.Context, error) { return s.hctx, s.ctxErr }

func (s *fakeStore) AssignRole(_ context.Context, roleID, userID, contextID int64) error {
	s.roles = append(s.roles, roleAssignment{roleID, userID, contextID})
	return nil
}

func (s *fakeStore) Membership(_ context.Context, _, userID int64) (host.Membership, error) {
	m, ok := s.memberships[userID]
	if !ok {
		return host.Membership{}, fmt.Errorf("membership: %w", host.ErrNotFound)
	}
	return m, nil
}

func (s *fakeStore) CreateMembership(_ context.Context, m host.Membership) (int64, error) {
	m.ID = int64(len(s.memberships) + 1)
	s.memberships[m.UserID] = m
	return m.ID, nil
}

func (s *fakeStore) TouchMembership(_ context.Context, _, _ int64, externalID string) error {
	s.touched = append(s.touched, externalID)
	return nil
}

func (s *fakeStore) AddCredential(_ context.Context, _ int64, key string, _ int64) error {
	s.credentials = append(s.credentials, key)
	return nil
}

type recorder struct {
	sessions []session.Session
}

func (r *recorder) sink(s session.Session) error {
	r.sessions = append(r.sessions, s)
	return nil
}

var enabled = config.Static{AuthEnabled: true, EnrolEnabled: true, AllowFrameEmbedding: true}

func learnerToken() ltiaas.IDToken {
	var tok ltiaas.IDToken
	tok.User.ID = "abc123"
	tok.User.Roles = []string{"http://purl.imsglobal.org/vocab/lis/v2/membership#Learner"}
	tok.Services.ServiceKey = "svc-1"
	return tok
}

func newEstablisher(st *fakeStore, tok ltiaas.IDToken, res admission.Result) *Establisher {
	return &Establisher{
		Gateway:   fakeGateway{tok: tok},
		Users:     fakeResolver{user: host.User{ID: 77, Username: "enrol_ltix"}},
		Admission: fakeAdmitter{res: res},
		Store:     st,
		Settings:  enabled,
		WWWRoot:   "https://lms.example/",
		Clock:     func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
}

/* ---------------- tests ---------------- */

func TestLaunchCourseLearner(t *testing.T) {
	st := newFakeStore()
	rec := &recorder{}
	out, err := newEstablisher(st, learnerToken(), admission.Result{Outcome: admission.Success}).
		Launch(context.Background(), 5, "ltik", rec.sink)
	require.NoError(t, err)

	assert.Equal(t, "https://lms.example/course/view.php?id=9", out.RedirectURL)
	assert.False(t, out.Instructor)
	assert.False(t, out.Embedded)
	assert.Equal(t, []roleAssignment{{5, 77, 500}}, st.roles)
	require.Contains(t, st.memberships, int64(77))
	assert.Equal(t, "abc123", st.memberships[77].ExternalID)
	assert.Nil(t, st.memberships[77].LastGrade)
	assert.Equal(t, []string{"svc-1"}, st.credentials)
	require.Len(t, rec.sessions, 1)
	assert.Equal(t, int64(77), rec.sessions[0].UserID)
	assert.Equal(t, "unknowncontext_::", out.PlatformContext)
}

func TestLaunchReportsPlatformContext(t *testing.T) {
	tok := learnerToken()
	tok.Launch.Context.ID = "c1"
	tok.Launch.Resource.ID = "r1"
	out, err := newEstablisher(newFakeStore(), tok, admission.Result{Outcome: admission.Success}).
		Launch(context.Background(), 5, "ltik", (&recorder{}).sink)
	require.NoError(t, err)
	assert.Equal(t, "c1::r1", out.PlatformContext)
}

func TestLaunchInstructorRoles(t *testing.T) {
	for _, role := range []string{ltiaas.RoleInstructor, ltiaas.RoleAdministrator} {
		st := newFakeStore()
		tok := learnerToken()
		tok.User.Roles = append(tok.User.Roles, role)
		out, err := newEstablisher(st, tok, admission.Result{Outcome: admission.Success}).
			Launch(context.Background(), 5, "ltik", (&recorder{}).sink)
		require.NoError(t, err)
		assert.True(t, out.Instructor, role)
		assert.Equal(t, int64(3), st.roles[0].role, role)
	}
}

func TestLaunchModuleEmbedding(t *testing.T) {
	st := newFakeStore()
	st.hctx = host.Context{ID: 500, Level: host.ContextModule, InstanceID: 42, CourseID: 9, ModName: "quiz"}
	rec := &recorder{}
	out, err := newEstablisher(st, learnerToken(), admission.Result{Outcome: admission.Success}).
		Launch(context.Background(), 5, "ltik", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "https://lms.example/mod/quiz/view.php?id=42", out.RedirectURL)
	assert.True(t, out.Embedded)
	assert.True(t, rec.sessions[0].Embedded)

	tok := learnerToken()
	tok.User.Roles = []string{ltiaas.RoleInstructor}
	out, err = newEstablisher(st, tok, admission.Result{Outcome: admission.Success}).
		Launch(context.Background(), 5, "ltik", rec.sink)
	require.NoError(t, err)
	assert.False(t, out.Embedded, "instructors keep the full layout")

	tok.Launch.Custom = map[string]any{"custom_force_embed": float64(1)}
	out, err = newEstablisher(st, tok, admission.Result{Outcome: admission.Success}).
		Launch(context.Background(), 5, "ltik", rec.sink)
	require.NoError(t, err)
	assert.True(t, out.Embedded)
}

func TestLaunchRepeatTouchesMembership(t *testing.T) {
	st := newFakeStore()
	e := newEstablisher(st, learnerToken(), admission.Result{Outcome: admission.Success})
	_, err := e.Launch(context.Background(), 5, "ltik", (&recorder{}).sink)
	require.NoError(t, err)
	_, err = e.Launch(context.Background(), 5, "ltik", (&recorder{}).sink)
	require.NoError(t, err)

	assert.Len(t, st.memberships, 1)
	assert.Equal(t, []string{"abc123"}, st.touched)
	assert.Len(t, st.roles, 2, "role assignment runs on every launch")
}

func TestLaunchFailuresStartNoSession(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(*Establisher, *fakeStore)
		state  State
		reason string
	}{
		{"auth disabled", func(e *Establisher, _ *fakeStore) {
			e.Settings = config.Static{EnrolEnabled: true}
		}, TokenReceived, ReasonAuthDisabled},
		{"enrol disabled", func(e *Establisher, _ *fakeStore) {
			e.Settings = config.Static{AuthEnabled: true}
		}, TokenReceived, ReasonEnrolDisabled},
		{"tool disabled", func(_ *Establisher, st *fakeStore) {
			st.tool.Status = host.StatusDisabled
		}, TokenReceived, ReasonInvalidTool},
		{"tool lookup error", func(_ *Establisher, st *fakeStore) {
			st.toolErr = errors.New("connection refused")
		}, TokenReceived, ReasonInternal},
		{"token", func(e *Establisher, _ *fakeStore) {
			e.Gateway = fakeGateway{err: &ltiaas.TransportError{Op: "idtoken", Status: 401}}
		}, TokenReceived, ReasonNoIdentity},
		{"context", func(_ *Establisher, st *fakeStore) {
			st.ctxErr = host.ErrNotFound
		}, IdentityResolved, ReasonInvalidCtx},
		{"admission", func(e *Establisher, _ *fakeStore) {
			e.Admission = fakeAdmitter{res: admission.Result{Outcome: admission.MaxEnrolledReached}}
		}, ContextValidated, "maxenrolledreached"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newFakeStore()
			rec := &recorder{}
			e := newEstablisher(st, learnerToken(), admission.Result{Outcome: admission.Success})
			tc.setup(e, st)

			_, err := e.Launch(context.Background(), 5, "ltik", rec.sink)
			var f *Failure
			require.True(t, errors.As(err, &f), "got %v", err)
			assert.Equal(t, tc.state, f.State)
			assert.Equal(t, tc.reason, f.Reason)
			assert.Empty(t, rec.sessions)
			assert.Empty(t, st.memberships)
		})
	}
}

func TestLaunchUnknownTool(t *testing.T) {
	_, err := newEstablisher(newFakeStore(), learnerToken(), admission.Result{}).
		Launch(context.Background(), 999, "ltik", (&recorder{}).sink)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ReasonInvalidTool, f.Reason)
	assert.ErrorIs(t, err, host.ErrNotFound)
}
