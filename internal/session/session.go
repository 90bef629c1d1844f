// Package session is the auth context of the web front end.
//
// A Session is loaded from the store at the start of every request
// (Hydrate), handed explicitly to the page handler, and written back when the
// handler changes it (Save). Login and Logout are the only operations that
// set or clear the user and the bearer token, and they always do both.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/aanand-mishra/library-web/internal/api"
	"github.com/aanand-mishra/library-web/internal/storage"
	"github.com/aanand-mishra/library-web/internal/types"
)

// Session is the per-browser auth state.
type Session struct {
	ID    string
	User  *types.User
	Token string

	flashes   []types.Flash
	createdAt time.Time
	dirty     bool
}

// IsAuthenticated reports whether a user is logged in.
func (s *Session) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(kind types.FlashKind, msg string) {
	s.flashes = append(s.flashes, types.Flash{Kind: kind, Message: msg})
	s.dirty = true
}

// PopFlashes returns the queued messages and empties the queue.
func (s *Session) PopFlashes() []types.Flash {
	if len(s.flashes) == 0 {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	s.dirty = true
	return out
}

// Handler is a page handler that receives the hydrated session.
type Handler func(w http.ResponseWriter, r *http.Request, sess *Session)

// Authenticator exchanges credentials for a bearer token and the account
// it belongs to. *api.Client satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (string, types.User, error)
}

// Manager ties sessions to cookies and the session store.
type Manager struct {
	store      storage.Storage
	auth       Authenticator
	cookieName string
	maxAge     time.Duration
	secure     bool
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCookie sets the cookie name, lifetime and Secure flag.
func WithCookie(name string, maxAge time.Duration, secure bool) Option {
	return func(m *Manager) {
		m.cookieName = name
		m.maxAge = maxAge
		m.secure = secure
	}
}

// WithClock replaces time.Now, for token expiry checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager returns a Manager backed by store and auth.
func NewManager(store storage.Storage, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		auth:       auth,
		cookieName: "library_session",
		maxAge:     24 * time.Hour,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Wrap adapts a session Handler to http.Handler.
func (m *Manager) Wrap(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, m.Hydrate(r))
	})
}

// Hydrate loads the session named by the request cookie. A missing cookie,
// a missing row or a store fault all yield an anonymous session. A stored
// JWT whose expiry has passed is dropped along with the user.
func (m *Manager) Hydrate(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}

	row, err := m.store.GetSession(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("failed to load session", slog.String("error", err.Error()))
		}
		return &Session{}
	}

	sess := &Session{
		ID:        row.ID,
		User:      row.User,
		Token:     row.Token,
		flashes:   row.Flashes,
		createdAt: row.CreatedAt,
	}

	if sess.Token != "" && tokenExpired(sess.Token, m.now()) {
		slog.Info("session token expired", slog.String("session_id", sess.ID))
		sess.User = nil
		sess.Token = ""
		sess.dirty = true
	}
	if sess.User == nil || sess.Token == "" {
		sess.User = nil
		sess.Token = ""
	}

	return sess
}

// tokenExpired reports whether token is a JWT whose exp claim is not in the
// future. Opaque tokens are never considered expired here; the API is the
// authority on those.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}

// Ping reports whether the session store is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Login authenticates through the API. On success the session gets the token
// and user under a fresh ID and the cookie is set. On failure the session is
// left without user and token and false is returned; the fault is logged.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, sess *Session, email, password string) bool {
	token, user, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) {
			slog.Warn("login rejected", slog.String("email", email))
		} else {
			slog.Error("login failed", slog.String("email", email), slog.String("error", err.Error()))
		}
		clearLogin(sess)
		return false
	}

	if sess.ID != "" {
		if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
			slog.Error("failed to drop pre-login session", slog.String("error", err.Error()))
		}
	}

	sess.ID = uuid.NewString()
	sess.User = &user
	sess.Token = token
	sess.createdAt = m.now().UTC()
	sess.dirty = true

	if err := m.Save(ctx, w, sess); err != nil {
		slog.Error("failed to persist session", slog.String("error", err.Error()))
		sess.User = nil
		sess.Token = ""
		return false
	}

	slog.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("role", user.Role.String()))
	return true
}

// clearLogin clears the user and token after a failed login. A stored session
// is marked dirty so the next Save overwrites the previous login; a session
// that was never stored stays that way.
func clearLogin(sess *Session) {
	hadLogin := sess.User != nil || sess.Token != ""
	sess.User = nil
	sess.Token = ""
	if sess.ID != "" && hadLogin {
		sess.dirty = true
	}
}

// Logout clears the session, deletes its row and expires the cookie.
// Afterwards the session has no user and no token whatever its prior state.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, sess *Session) {
	if sess.ID != "" {
		if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
			slog.Error("failed to delete session", slog.String("error", err.Error()))
		}
	}

	*sess = Session{}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Save writes the session back when it has changed. An anonymous browser
// gets a row and a cookie the first time something is stored for it.
// Save must run before the response body is written.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if !sess.dirty {
		return nil
	}

	now := m.now().UTC()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
		sess.createdAt = now
	}

	err := m.store.SaveSession(ctx, storage.Session{
		ID:        sess.ID,
		Token:     sess.Token,
		User:      sess.User,
		Flashes:   sess.flashes,
		CreatedAt: sess.createdAt,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}
	sess.dirty = false

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Sweep deletes sessions idle for longer than the cookie lifetime, once per
// interval, until ctx is done.
func (m *Manager) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.DeleteSessionsBefore(ctx, m.now().Add(-m.maxAge))
			if err != nil {
				slog.Error("session sweep failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				slog.Debug("swept idle sessions", slog.Int64("count", n))
			}
		}
	}
}
