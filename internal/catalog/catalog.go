// Package catalog lists published tools for the platform side.
package catalog

import (
	"context"
	"fmt"

	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
)

type Type string

const (
	TypeCourse Type = "COURSE"
	TypeModule Type = "MODULE"
)

// Entry is one selectable item of the deep linking listing.
type Entry struct {
	URL         string `json:"url"`
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        Type   `json:"type"`
	Depth       int    `json:"depth"`
	ID          int64  `json:"id"`
}

// Summary is one item of the service-to-service tools listing.
type Summary struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Store interface {
	Tools(ctx context.Context, f host.ToolFilter) ([]host.Tool, error)
	Context(ctx context.Context, id int64) (host.Context, error)
}

type Catalog struct {
	Store    Store
	Settings config.Provider
}

func New(store Store, settings config.Provider) *Catalog {
	return &Catalog{Store: store, Settings: settings}
}

// Name is the tool's own name, or its context's when it has none.
func Name(t host.Tool, c host.Context) string {
	if t.Name != "" {
		return t.Name
	}
	return c.Name
}

// Description is the tool's custom description, or its context's.
func Description(t host.Tool, c host.Context) string {
	if t.CustomDescription != "" {
		return t.CustomDescription
	}
	return c.Description
}

type resolved struct {
	tool host.Tool
	ctx  host.Context
	url  string
}

func (c *Catalog) enabled(ctx context.Context) ([]resolved, error) {
	st, err := c.Settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	tools, err := c.Store.Tools(ctx, host.EnabledTools())
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	out := make([]resolved, 0, len(tools))
	for _, t := range tools {
		hc, err := c.Store.Context(ctx, t.ContextID)
		if err != nil {
			return nil, fmt.Errorf("tool %d: %w", t.ID, err)
		}
		u, err := ltiaas.LaunchURL(st.LTIAASURL, t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved{tool: t, ctx: hc, url: u})
	}
	return out, nil
}

// Entries lists every enabled tool for deep linking. Entries sharing a URL
// are collapsed onto the first.
func (c *Catalog) Entries(ctx context.Context) ([]Entry, error) {
	tools, err := c.enabled(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(tools))
	out := make([]Entry, 0, len(tools))
	for _, r := range tools {
		if seen[r.url] {
			continue
		}
		seen[r.url] = true
		typ := TypeModule
		if r.ctx.Level == host.ContextCourse {
			typ = TypeCourse
		}
		out = append(out, Entry{
			URL:         r.url,
			Icon:        r.ctx.IconURL,
			Name:        r.ctx.Name,
			Description: Description(r.tool, r.ctx),
			Type:        typ,
			Depth:       r.ctx.Depth,
			ID:          r.ctx.ID,
		})
	}
	return out, nil
}

func (c *Catalog) Summaries(ctx context.Context) ([]Summary, error) {
	tools, err := c.enabled(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(tools))
	for _, r := range tools {
		out = append(out, Summary{URL: r.url, Name: Name(r.tool, r.ctx), Description: Description(r.tool, r.ctx)})
	}
	return out, nil
}
