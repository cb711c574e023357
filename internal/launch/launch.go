// Package launch runs a tool launch from launch key to host session.
package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-ltienrol/internal/admission"
	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/identity"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
	"github.com/mind-engage/mindengage-ltienrol/internal/metrics"
	"github.com/mind-engage/mindengage-ltienrol/internal/session"
)

type Gateway interface {
	IDToken(ctx context.Context, ltik string) (ltiaas.IDToken, error)
}

type Resolver interface {
	Resolve(ctx context.Context, tool host.Tool, c identity.Claims) (host.User, error)
}

type Admitter interface {
	Evaluate(ctx context.Context, tool host.Tool, userID, now int64) admission.Result
}

type Store interface {
	Tool(ctx context.Context, id int64) (host.Tool, error)
	Context(ctx context.Context, id int64) (host.Context, error)
	AssignRole(ctx context.Context, roleID, userID, contextID int64) error
	Membership(ctx context.Context, toolID, userID int64) (host.Membership, error)
	CreateMembership(ctx context.Context, m host.Membership) (int64, error)
	TouchMembership(ctx context.Context, id, lastAccess int64, externalID string) error
	AddCredential(ctx context.Context, membershipID int64, serviceKey string, now int64) error
}

// Sink receives the session once every other step has succeeded.
type Sink func(session.Session) error

type Outcome struct {
	User        host.User
	Tool        host.Tool
	RedirectURL string
	Embedded    bool
	Instructor  bool
	// PlatformContext is the launching platform's context and resource.
	PlatformContext string
	// AllowFrameEmbedding mirrors the setting read during the launch; when
	// false the caller links to RedirectURL instead of redirecting.
	AllowFrameEmbedding bool
}

type Establisher struct {
	Gateway   Gateway
	Users     Resolver
	Admission Admitter
	Store     Store
	Settings  config.Provider
	WWWRoot   string
	Clock     func() time.Time
	Logger    *slog.Logger
}

func (e *Establisher) now() int64 {
	if e.Clock != nil {
		return e.Clock().Unix()
	}
	return time.Now().Unix()
}

func (e *Establisher) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Launch runs every launch step for toolID and ltik. No session reaches
// sink unless all steps succeed. Errors are *Failure.
func (e *Establisher) Launch(ctx context.Context, toolID int64, ltik string, sink Sink) (Outcome, error) {
	out, err := e.launch(ctx, toolID, ltik, sink)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			metrics.Launches.WithLabelValues(f.Reason).Inc()
			e.log().Info("launch failed", "tool", toolID, "state", f.State.String(), "reason", f.Reason, "err", f.Err)
		}
		return Outcome{}, err
	}
	metrics.Launches.WithLabelValues("success").Inc()
	e.log().Info("launch established", "tool", toolID, "user", out.User.ID,
		"platform_context", out.PlatformContext, "instructor", out.Instructor)
	return out, nil
}

func (e *Establisher) launch(ctx context.Context, toolID int64, ltik string, sink Sink) (Outcome, error) {
	st, err := e.Settings.Settings(ctx)
	if err != nil {
		return Outcome{}, fail(TokenReceived, ReasonInternal, err)
	}
	if !st.AuthEnabled {
		return Outcome{}, fail(TokenReceived, ReasonAuthDisabled, nil)
	}
	if !st.EnrolEnabled {
		return Outcome{}, fail(TokenReceived, ReasonEnrolDisabled, nil)
	}
	tool, err := e.Store.Tool(ctx, toolID)
	switch {
	case errors.Is(err, host.ErrNotFound):
		return Outcome{}, fail(TokenReceived, ReasonInvalidTool, err)
	case err != nil:
		return Outcome{}, fail(TokenReceived, ReasonInternal, fmt.Errorf("tool: %w", err))
	case tool.Status != host.StatusEnabled:
		return Outcome{}, fail(TokenReceived, ReasonInvalidTool, nil)
	}

	tok, err := e.Gateway.IDToken(ctx, ltik)
	if err != nil {
		return Outcome{}, fail(TokenReceived, ReasonNoIdentity, err)
	}
	user, err := e.Users.Resolve(ctx, tool, identity.Claims{
		Subject:      tok.User.ID,
		Issuer:       tok.Platform.URL,
		ClientID:     tok.Platform.ClientID,
		DeploymentID: tok.Platform.DeploymentID,
		GivenName:    tok.User.GivenName,
		FamilyName:   tok.User.FamilyName,
		Email:        tok.User.Email,
	})
	if err != nil {
		return Outcome{}, fail(TokenReceived, ReasonUserFailed, err)
	}

	hctx, err := e.Store.Context(ctx, tool.ContextID)
	if err != nil {
		return Outcome{}, fail(IdentityResolved, ReasonInvalidCtx, err)
	}
	redirect, err := e.redirectURL(tool, hctx)
	if err != nil {
		return Outcome{}, fail(IdentityResolved, ReasonInvalidCtx, err)
	}

	now := e.now()
	res := e.Admission.Evaluate(ctx, tool, user.ID, now)
	if !res.Admitted() {
		return Outcome{}, fail(ContextValidated, res.Outcome.Reason(), res.Err)
	}

	instructor := tok.IsInstructor()
	role := tool.RoleLearner
	if instructor {
		role = tool.RoleInstructor
	}
	if err := e.Store.AssignRole(ctx, role, user.ID, tool.ContextID); err != nil {
		return Outcome{}, fail(Admitted, ReasonInternal, fmt.Errorf("assign role: %w", err))
	}

	if err := e.recordMembership(ctx, tool, user, tok, now); err != nil {
		return Outcome{}, fail(RoleAssigned, ReasonInternal, err)
	}

	// Learners opening an activity get the embedded layout unless the
	// platform asked for it explicitly.
	embedded := tok.ForceEmbed() || (hctx.Level == host.ContextModule && !instructor)
	if err := sink(session.Session{UserID: user.ID, Username: user.Username, Embedded: embedded}); err != nil {
		return Outcome{}, fail(MembershipRecorded, ReasonInternal, fmt.Errorf("session: %w", err))
	}

	return Outcome{
		User:                user,
		Tool:                tool,
		RedirectURL:         redirect,
		Embedded:            embedded,
		Instructor:          instructor,
		PlatformContext:     tok.ContextKey(),
		AllowFrameEmbedding: st.AllowFrameEmbedding,
	}, nil
}

func (e *Establisher) recordMembership(ctx context.Context, tool host.Tool, user host.User, tok ltiaas.IDToken, now int64) error {
	m, err := e.Store.Membership(ctx, tool.ID, user.ID)
	switch {
	case err == nil:
		if err := e.Store.TouchMembership(ctx, m.ID, now, tok.User.ID); err != nil {
			return fmt.Errorf("touch membership: %w", err)
		}
	case errors.Is(err, host.ErrNotFound):
		m = host.Membership{ToolID: tool.ID, UserID: user.ID, ExternalID: tok.User.ID, LastAccess: now, TimeCreated: now}
		if m.ID, err = e.Store.CreateMembership(ctx, m); err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
	default:
		return fmt.Errorf("membership: %w", err)
	}

	if key := strings.TrimSpace(tok.Services.ServiceKey); key != "" {
		if err := e.Store.AddCredential(ctx, m.ID, key, now); err != nil {
			return fmt.Errorf("add credential: %w", err)
		}
	}
	return nil
}

func (e *Establisher) redirectURL(tool host.Tool, c host.Context) (string, error) {
	root := strings.TrimRight(e.WWWRoot, "/")
	switch c.Level {
	case host.ContextCourse:
		return root + "/course/view.php?id=" + strconv.FormatInt(tool.CourseID, 10), nil
	case host.ContextModule:
		if c.ModName == "" {
			return "", fmt.Errorf("context %d: module without type", c.ID)
		}
		return root + "/mod/" + url.PathEscape(c.ModName) + "/view.php?id=" + strconv.FormatInt(c.InstanceID, 10), nil
	default:
		return "", fmt.Errorf("context %d: unsupported level %d", c.ID, c.Level)
	}
}
