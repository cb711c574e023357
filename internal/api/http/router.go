package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/metrics"
	"github.com/mind-engage/mindengage-ltienrol/internal/session"
)

type Deps struct {
	Launcher    Launcher
	Gateway     Gateway
	Catalog     Catalog
	Settings    config.Provider
	Sessions    *session.Manager
	CORSOrigins []string
	// Ready reports whether storage is reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/tool", LaunchHandler(d.Launcher, d.Sessions))
	r.With(d.Sessions.Middleware).Get("/session", SessionHandler())

	// the deep linking picker is a separate single page app
	r.Group(func(dr chi.Router) {
		dr.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		dr.Get("/deeplinking.php", DeepLinkingHandler(d.Gateway, d.Catalog))
		dr.Post("/deeplinkingform.php", DeepLinkingFormHandler(d.Gateway))
		dr.Options("/deeplinking.php", func(nethttp.ResponseWriter, *nethttp.Request) {})
		dr.Options("/deeplinkingform.php", func(nethttp.ResponseWriter, *nethttp.Request) {})
	})

	r.Get("/tools.php", ToolsHandler(d.Settings, d.Catalog))

	r.Get("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				nethttp.Error(w, "not ready", nethttp.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}
