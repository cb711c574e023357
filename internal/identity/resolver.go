// Package identity maps platform users onto local host accounts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/validate"
)

const (
	AuthLTI            = "lti"
	defaultMailDisplay = 2
)

type Claims struct {
	Subject      string
	Issuer       string
	ClientID     string
	DeploymentID string
	GivenName    string
	FamilyName   string
	Email        string
}

func (c Claims) Username() string {
	return Username(c.Issuer, c.ClientID, c.DeploymentID, c.Subject)
}

type Store interface {
	UserByUsername(ctx context.Context, username string) (host.User, error)
	User(ctx context.Context, id int64) (host.User, error)
	CreateUser(ctx context.Context, u host.User) (int64, error)
	UpdateUser(ctx context.Context, u host.User) error
}

type Resolver struct {
	Store    Store
	Settings config.Provider
}

func NewResolver(store Store, settings config.Provider) *Resolver {
	return &Resolver{Store: store, Settings: settings}
}

// Resolve returns the local account for c, creating it on first sight and
// updating it when the platform sent different profile data.
func (r *Resolver) Resolve(ctx context.Context, tool host.Tool, c Claims) (host.User, error) {
	st, err := r.Settings.Settings(ctx)
	if err != nil {
		return host.User{}, fmt.Errorf("settings: %w", err)
	}
	u := r.profile(tool, c, st)

	existing, err := r.Store.UserByUsername(ctx, u.Username)
	switch {
	case errors.Is(err, host.ErrNotFound):
		if u.Email == "" {
			u.Email = u.Username + "@example.com"
		}
		u.Auth = AuthLTI
		id, err := r.Store.CreateUser(ctx, u)
		if err != nil {
			return host.User{}, fmt.Errorf("create user: %w", err)
		}
		u, err = r.Store.User(ctx, id)
		if err != nil {
			return host.User{}, err
		}
	case err != nil:
		return host.User{}, fmt.Errorf("lookup user: %w", err)
	case Match(u, existing):
		u = existing
	default:
		if u.Email == "" {
			u.Email = existing.Email
		}
		u.ID, u.Auth = existing.ID, existing.Auth
		if err := r.Store.UpdateUser(ctx, u); err != nil {
			return host.User{}, fmt.Errorf("update user: %w", err)
		}
		u, err = r.Store.User(ctx, existing.ID)
		if err != nil {
			return host.User{}, err
		}
	}
	if u.FirstName == "" {
		u.FirstName = strconv.FormatInt(u.ID, 10)
	}
	return u, nil
}

// profile builds the user record the platform and tool describe.
func (r *Resolver) profile(tool host.Tool, c Claims, st config.Settings) host.User {
	u := host.User{
		Username:    c.Username(),
		FirstName:   strings.TrimSpace(c.GivenName),
		LastName:    strings.TrimSpace(c.FamilyName),
		Email:       cleanEmail(c.Email),
		City:        firstNonEmpty(tool.City, st.City),
		Country:     firstNonEmpty(tool.Country, st.Country),
		Institution: tool.Institution,
		Timezone:    firstNonEmpty(tool.Timezone, st.Timezone),
		MailDisplay: mailDisplay(tool, st),
		MNetHostID:  st.MNetHostID,
		Confirmed:   true,
		Lang:        firstNonEmpty(tool.Lang, st.Lang),
	}
	if u.LastName == "" {
		// Flags the account for manual review.
		u.LastName = strconv.FormatInt(tool.ContextID, 10)
	}
	return u
}

// Match reports whether two records agree on every field the platform can
// change. A match needs no write.
func Match(a, b host.User) bool {
	return a.FirstName == b.FirstName &&
		a.LastName == b.LastName &&
		a.Email == b.Email &&
		a.City == b.City &&
		a.Country == b.Country &&
		a.Institution == b.Institution &&
		a.Timezone == b.Timezone &&
		a.MailDisplay == b.MailDisplay &&
		a.MNetHostID == b.MNetHostID &&
		a.Confirmed == b.Confirmed &&
		a.Lang == b.Lang
}

func mailDisplay(tool host.Tool, st config.Settings) int {
	if tool.MailDisplay != nil {
		return *tool.MailDisplay
	}
	if v, err := strconv.Atoi(strings.TrimSpace(st.MailDisplay)); err == nil {
		return v
	}
	return defaultMailDisplay
}

func cleanEmail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || validate.Var(s, "email") != nil {
		return ""
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
