package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-ltienrol/internal/catalog"
	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/launch"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
	"github.com/mind-engage/mindengage-ltienrol/internal/session"
)

type fakeLauncher struct {
	out   launch.Outcome
	err   error
	calls int
}

func (f *fakeLauncher) Launch(_ context.Context, toolID int64, _ string, sink launch.Sink) (launch.Outcome, error) {
	f.calls++
	if f.err != nil {
		return launch.Outcome{}, f.err
	}
	if err := sink(session.Session{UserID: 7, Username: "enrol_ltix", Embedded: f.out.Embedded}); err != nil {
		return launch.Outcome{}, err
	}
	f.out.Tool.ID = toolID
	return f.out, nil
}

type fakeGateway struct {
	tokenErr error
	form     ltiaas.Form
	formErr  error
	item     ltiaas.ContentItem
}

func (g *fakeGateway) IDToken(context.Context, string) (ltiaas.IDToken, error) {
	return ltiaas.IDToken{}, g.tokenErr
}

func (g *fakeGateway) DeepLinkingForm(_ context.Context, item ltiaas.ContentItem, _ string) (ltiaas.Form, error) {
	g.item = item
	return g.form, g.formErr
}

type fakeCatalog struct{}

func (fakeCatalog) Entries(context.Context) ([]catalog.Entry, error) {
	return []catalog.Entry{{URL: "https://t.example/lti/launch?id=1", Name: "Algebra", Type: catalog.TypeCourse, Depth: 3, ID: 10}}, nil
}

func (fakeCatalog) Summaries(context.Context) ([]catalog.Summary, error) {
	return []catalog.Summary{{URL: "https://t.example/lti/launch?id=1", Name: "Algebra", Description: "Intro"}}, nil
}

type testServer struct {
	*httptest.Server
	launcher *fakeLauncher
	gateway  *fakeGateway
	sessions *session.Manager
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		launcher: &fakeLauncher{out: launch.Outcome{RedirectURL: "https://lms.example/course/view.php?id=7", AllowFrameEmbedding: true}},
		gateway:  &fakeGateway{form: ltiaas.Form{Form: "<form></form>"}},
		sessions: session.NewManager("secret", time.Hour),
	}
	r := NewRouter(Deps{
		Launcher:    ts.launcher,
		Gateway:     ts.gateway,
		Catalog:     fakeCatalog{},
		Settings:    config.Static{LTIAASAPIKey: "api-key"},
		Sessions:    ts.sessions,
		CORSOrigins: []string{"https://picker.example"},
	})
	ts.Server = httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func noRedirect() *nethttp.Client {
	return &nethttp.Client{CheckRedirect: func(*nethttp.Request, []*nethttp.Request) error {
		return nethttp.ErrUseLastResponse
	}}
}

func TestLaunchRedirectsWithCrossSiteCookie(t *testing.T) {
	ts := newServer(t)
	resp, err := noRedirect().Get(ts.URL + "/tool?id=3&ltik=abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://lms.example/course/view.php?id=7", resp.Header.Get("Location"))
	require.Len(t, resp.Cookies(), 1)
	c := resp.Cookies()[0]
	assert.Equal(t, session.CookieName, c.Name)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "SameSite=None")
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "Secure")

	s, err := ts.sessions.Parse(c.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.UserID)
}

func TestLaunchLinksWhenFramingDisallowed(t *testing.T) {
	ts := newServer(t)
	ts.launcher.out.AllowFrameEmbedding = false
	resp, err := noRedirect().Get(ts.URL + "/tool?id=3&ltik=abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var b bytes.Buffer
	_, _ = b.ReadFrom(resp.Body)
	assert.Contains(t, b.String(), `target="_blank"`)
	assert.Contains(t, b.String(), "https://lms.example/course/view.php?id=7")
	assert.Contains(t, b.String(), "does not allow embedding in frames")
	assert.Contains(t, b.String(), ">Open tool</a>")
}

func TestLaunchFailureRendersReason(t *testing.T) {
	ts := newServer(t)
	ts.launcher.err = &launch.Failure{State: launch.ContextValidated, Reason: "maxenrolledreached"}
	resp, err := noRedirect().Get(ts.URL + "/tool?id=3&ltik=abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
	var b bytes.Buffer
	_, _ = b.ReadFrom(resp.Body)
	assert.Contains(t, b.String(), "maximum number of enrolled users")
}

func TestLaunchRejectsMissingParams(t *testing.T) {
	ts := newServer(t)
	for _, q := range []string{"", "?id=x&ltik=a", "?id=3"} {
		resp, err := noRedirect().Get(ts.URL + "/tool" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode, q)
	}
	assert.Zero(t, ts.launcher.calls)
}

func TestDeepLinkingListing(t *testing.T) {
	ts := newServer(t)
	resp, err := nethttp.Get(ts.URL + "/deeplinking.php?ltik=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "COURSE", got[0]["type"])
	assert.Equal(t, float64(3), got[0]["depth"])
	for _, k := range []string{"url", "icon", "name", "description", "id"} {
		assert.Contains(t, got[0], k)
	}

	ts.gateway.tokenErr = errors.New("expired")
	resp2, err := nethttp.Get(ts.URL + "/deeplinking.php?ltik=abc")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, nethttp.StatusUnauthorized, resp2.StatusCode)
}

func postForm(t *testing.T, ts *testServer, body string) (*nethttp.Response, map[string]string) {
	t.Helper()
	resp, err := nethttp.Post(ts.URL+"/deeplinkingform.php?ltik=abc", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]string{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestDeepLinkingForm(t *testing.T) {
	ts := newServer(t)
	resp, out := postForm(t, ts, `{"type":"ltiResourceLink","url":"https://t.example/lti/launch?id=1","title":"Algebra"}`)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "<form></form>", out["form"])
	assert.Equal(t, "Algebra", ts.gateway.item.Title)

	resp, out = postForm(t, ts, `{"type":"link","url":"nope"}`)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["err"])

	ts.gateway.formErr = &ltiaas.RemoteError{Op: "deeplinking", Status: 400, Message: "Invalid content item"}
	resp, out = postForm(t, ts, `{"type":"ltiResourceLink","url":"https://t.example/x","title":"X"}`)
	assert.Equal(t, nethttp.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Invalid content item", out["err"])
}

func TestToolsListingRequiresAPIKey(t *testing.T) {
	ts := newServer(t)
	get := func(auth string) *nethttp.Response {
		req, _ := nethttp.NewRequest(nethttp.MethodGet, ts.URL+"/tools.php", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := nethttp.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	for _, auth := range []string{"", "Bearer wrong", "api-key", "Bearer "} {
		resp := get(auth)
		var b bytes.Buffer
		_, _ = b.ReadFrom(resp.Body)
		resp.Body.Close()
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode, auth)
		assert.Equal(t, "Unauthorized", strings.TrimSpace(b.String()))
	}

	resp := get("Bearer api-key")
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var got []catalog.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []catalog.Summary{{URL: "https://t.example/lti/launch?id=1", Name: "Algebra", Description: "Intro"}}, got)
}

func TestSessionEndpoint(t *testing.T) {
	ts := newServer(t)
	tok, err := ts.sessions.Issue(session.Session{UserID: 7, Username: "u", Embedded: true})
	require.NoError(t, err)

	req, _ := nethttp.NewRequest(nethttp.MethodGet, ts.URL+"/session", nil)
	req.AddCookie(&nethttp.Cookie{Name: session.CookieName, Value: tok})
	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, true, got["embedded"])

	resp2, err := nethttp.Get(ts.URL + "/session")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, nethttp.StatusUnauthorized, resp2.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newServer(t)
	for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := nethttp.Get(ts.URL + p)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode, p)
	}
}
