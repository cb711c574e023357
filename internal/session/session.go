// Package session issues the signed cookie that logs a launched user in.
package session

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "ltienrol_session"
	issuer     = "mindengage-ltienrol"
)

var ErrNoSession = errors.New("no session")

// Session is what a completed launch hands to the browser.
type Session struct {
	UserID   int64
	Username string
	Embedded bool // render pages without navigation chrome
}

type Claims struct {
	Username string `json:"username"`
	Embedded bool   `json:"embedded,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) Issue(s Session) (string, error) {
	now := m.now()
	claims := &Claims{
		Username: s.Username,
		Embedded: s.Embedded,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(s.UserID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.hmac)
}

func (m *Manager) Parse(tokenStr string) (Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.hmac, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Session{}, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Session{}, ErrNoSession
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Session{}, ErrNoSession
	}
	return Session{UserID: id, Username: c.Username, Embedded: c.Embedded}, nil
}

// Establish signs s and sets it as a cross-site cookie. Launches arrive in a
// platform iframe, so the cookie must be SameSite=None and Secure.
func (m *Manager) Establish(w http.ResponseWriter, s Session) error {
	tok, err := m.Issue(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  m.now().Add(m.ttl),
	})
	return nil
}

// FromRequest reads the session cookie, falling back to a bearer token.
func (m *Manager) FromRequest(r *http.Request) (Session, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return m.Parse(c.Value)
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return m.Parse(strings.TrimPrefix(h, "Bearer "))
	}
	return Session{}, ErrNoSession
}

// Middleware attaches a valid session to the request context. Requests
// without one pass through untouched.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, err := m.FromRequest(r); err == nil {
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}
