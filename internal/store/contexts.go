package store

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

func (s *Store) Context(ctx context.Context, id int64) (host.Context, error) {
	var (
		c     host.Context
		level int
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, contextlevel, instanceid, courseid, depth, modname, name, description, iconurl
		FROM contexts WHERE id=$1`, id).
		Scan(&c.ID, &level, &c.InstanceID, &c.CourseID, &c.Depth, &c.ModName, &c.Name, &c.Description, &c.IconURL)
	if err != nil {
		return host.Context{}, notFound(fmt.Sprintf("context %d", id), err)
	}
	c.Level = host.ContextLevel(level)
	return c, nil
}

// CreateContext registers a course or module context with the host.
func (s *Store) CreateContext(ctx context.Context, c host.Context) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO contexts (contextlevel, instanceid, courseid, depth, modname, name, description, iconurl)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		int(c.Level), c.InstanceID, c.CourseID, c.Depth, c.ModName, c.Name, c.Description, c.IconURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create context: %w", err)
	}
	return id, nil
}
