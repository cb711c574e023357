// Package app wires the process together from its configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	api "github.com/mind-engage/mindengage-ltienrol/internal/api/http"
	"github.com/mind-engage/mindengage-ltienrol/internal/admission"
	"github.com/mind-engage/mindengage-ltienrol/internal/catalog"
	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/db"
	"github.com/mind-engage/mindengage-ltienrol/internal/gradesync"
	"github.com/mind-engage/mindengage-ltienrol/internal/identity"
	"github.com/mind-engage/mindengage-ltienrol/internal/launch"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
	"github.com/mind-engage/mindengage-ltienrol/internal/session"
	"github.com/mind-engage/mindengage-ltienrol/internal/store"
	"github.com/mind-engage/mindengage-ltienrol/internal/task"
	"github.com/mind-engage/mindengage-ltienrol/internal/unenrol"
)

type Container struct {
	Config   config.Config
	Settings config.Provider
	Logger   *slog.Logger

	DB       *sql.DB
	Store    *store.Store
	Gateway  *ltiaas.Client
	Sessions *session.Manager
	Redis    *redis.Client // nil without REDIS_URL
}

func NewContainer(ctx context.Context, cfg config.Config, settings config.Provider, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Settings: settings, Logger: logger}

	octx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(octx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	c.DB = dbh
	c.Store = store.New(dbh)
	logger.Info("connected to database", "driver", cfg.DBDriver)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			_ = dbh.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rc := redis.NewClient(opt)
		if err := rc.Ping(octx).Err(); err != nil {
			logger.Warn("redis not available, task locks are process local", "error", err)
			_ = rc.Close()
		} else {
			c.Redis = rc
			logger.Info("connected to redis")
		}
	}

	c.Gateway = ltiaas.New(settings, ltiaas.WithLogger(logger))
	c.Sessions = session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	return c, nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

func (c *Container) Establisher() *launch.Establisher {
	return &launch.Establisher{
		Gateway:   c.Gateway,
		Users:     identity.NewResolver(c.Store, c.Settings),
		Admission: admission.New(c.Store),
		Store:     c.Store,
		Settings:  c.Settings,
		WWWRoot:   c.Config.PublicURL,
		Logger:    c.Logger,
	}
}

func (c *Container) GradeSync() *gradesync.Engine {
	return gradesync.New(c.Store, c.Gateway, c.Settings, time.Now, c.Logger)
}

func (c *Container) Unenrol() *unenrol.Job {
	return unenrol.New(c.Store, c.Settings, c.Logger)
}

func (c *Container) Catalog() *catalog.Catalog {
	return catalog.New(c.Store, c.Settings)
}

func (c *Container) Locker() task.Locker {
	if c.Redis != nil {
		return task.NewRedisLocker(c.Redis)
	}
	return task.NewLocalLocker()
}

// Scheduler has both periodic jobs registered.
func (c *Container) Scheduler() *task.Scheduler {
	s := task.NewScheduler(c.Locker(), c.Logger)
	s.Add(task.UnenrolExpired(c.Unenrol(), c.Logger), c.Config.UnenrolInterval)
	s.Add(task.SyncGrades(c.GradeSync(), c.Logger), c.Config.GradeSyncInterval)
	return s
}

func (c *Container) Router() chi.Router {
	return api.NewRouter(api.Deps{
		Launcher:    c.Establisher(),
		Gateway:     c.Gateway,
		Catalog:     c.Catalog(),
		Settings:    c.Settings,
		Sessions:    c.Sessions,
		CORSOrigins: c.Config.CORSOrigins,
		Ready:       c.DB.PingContext,
	})
}
