// Package http holds the HTTP handlers of the enrolment bridge.
package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-ltienrol/internal/catalog"
	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/launch"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
	"github.com/mind-engage/mindengage-ltienrol/internal/session"
	"github.com/mind-engage/mindengage-ltienrol/internal/validate"
)

type Launcher interface {
	Launch(ctx context.Context, toolID int64, ltik string, sink launch.Sink) (launch.Outcome, error)
}

type Gateway interface {
	IDToken(ctx context.Context, ltik string) (ltiaas.IDToken, error)
	DeepLinkingForm(ctx context.Context, item ltiaas.ContentItem, ltik string) (ltiaas.Form, error)
}

type Catalog interface {
	Entries(ctx context.Context) ([]catalog.Entry, error)
	Summaries(ctx context.Context) ([]catalog.Summary, error)
}

const maxBody = 1 << 20

// LaunchHandler serves GET /tool?id=<tool>&ltik=<key>.
func LaunchHandler(l Launcher, sessions *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		ltik := strings.TrimSpace(r.URL.Query().Get("ltik"))
		if err != nil || id <= 0 || ltik == "" {
			renderError(w, nethttp.StatusBadRequest, launch.ReasonInvalidTool)
			return
		}

		out, err := l.Launch(r.Context(), id, ltik, func(s session.Session) error {
			return sessions.Establish(w, s)
		})
		if err != nil {
			var f *launch.Failure
			if !errors.As(err, &f) {
				renderError(w, nethttp.StatusInternalServerError, launch.ReasonInternal)
				return
			}
			renderError(w, failureStatus(f), f.Reason)
			return
		}

		if !out.AllowFrameEmbedding {
			renderOpen(w, out.Tool.Name, out.RedirectURL)
			return
		}
		nethttp.Redirect(w, r, out.RedirectURL, nethttp.StatusSeeOther)
	}
}

func failureStatus(f *launch.Failure) int {
	switch f.Reason {
	case launch.ReasonNoIdentity:
		return nethttp.StatusBadGateway
	case launch.ReasonInvalidTool, launch.ReasonInvalidCtx:
		return nethttp.StatusNotFound
	case launch.ReasonInternal, launch.ReasonUserFailed:
		return nethttp.StatusInternalServerError
	default:
		return nethttp.StatusForbidden
	}
}

// DeepLinkingHandler serves GET /deeplinking.php?ltik=<key>: the list of
// enabled tools a platform user may embed.
func DeepLinkingHandler(gw Gateway, cat Catalog) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ltik := strings.TrimSpace(r.URL.Query().Get("ltik"))
		if ltik == "" {
			writeErr(w, nethttp.StatusBadRequest, "missing ltik")
			return
		}
		if _, err := gw.IDToken(r.Context(), ltik); err != nil {
			slog.InfoContext(r.Context(), "deep linking token rejected", "err", err)
			writeErr(w, nethttp.StatusUnauthorized, "Unable to retrieve ID Token.")
			return
		}
		entries, err := cat.Entries(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "list deep linking entries", "err", err)
			writeErr(w, nethttp.StatusInternalServerError, "list tools failed")
			return
		}
		writeJSON(w, nethttp.StatusOK, entries)
	}
}

// DeepLinkingFormHandler serves POST /deeplinkingform.php?ltik=<key> and
// proxies the chosen content item to the remote service.
func DeepLinkingFormHandler(gw Gateway) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ltik := strings.TrimSpace(r.URL.Query().Get("ltik"))
		if ltik == "" {
			writeErr(w, nethttp.StatusBadRequest, "missing ltik")
			return
		}
		var item ltiaas.ContentItem
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&item); err != nil {
			writeErr(w, nethttp.StatusBadRequest, "bad json")
			return
		}
		if err := validate.Struct(item); err != nil {
			writeErr(w, nethttp.StatusBadRequest, err.Error())
			return
		}
		form, err := gw.DeepLinkingForm(r.Context(), item, ltik)
		if err != nil {
			slog.WarnContext(r.Context(), "deep linking form", "err", err)
			writeErr(w, nethttp.StatusBadGateway, ltiaas.Message(err))
			return
		}
		writeJSON(w, nethttp.StatusOK, form)
	}
}

// ToolsHandler serves GET /tools.php to the remote service, authenticated
// with the configured API key as a bearer token.
func ToolsHandler(settings config.Provider, cat Catalog) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		st, err := settings.Settings(r.Context())
		if err != nil {
			nethttp.Error(w, "settings unavailable", nethttp.StatusInternalServerError)
			return
		}
		if !apiKeyMatches(r.Header.Get("Authorization"), st.LTIAASAPIKey) {
			nethttp.Error(w, "Unauthorized", nethttp.StatusUnauthorized)
			return
		}
		tools, err := cat.Summaries(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "list tools", "err", err)
			nethttp.Error(w, "list tools failed", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, tools)
	}
}

func apiKeyMatches(header, key string) bool {
	tok, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	tok = strings.TrimSpace(tok)
	if !ok || tok == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok), []byte(key)) == 1
}

// SessionHandler reports the session established by the last launch, so
// host pages can pick their layout.
func SessionHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok {
			writeErr(w, nethttp.StatusUnauthorized, "no session")
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"userid":   s.UserID,
			"username": s.Username,
			"embedded": s.Embedded,
		})
	}
}
