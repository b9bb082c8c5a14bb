package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/mixstats/internal/shared"
	"golang.org/x/oauth2"
)

// SessionCookie is the cookie carrying the session id.
const SessionCookie = "mixstats_session"

// tokenExpiryBuffer treats tokens expiring within this window as already
// expired, so a token never goes stale mid-pipeline.
const tokenExpiryBuffer = 60 * time.Second

// RefreshFunc exchanges a refresh token for a fresh access token.
type RefreshFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

// session is one authenticated browser session and its provider token.
type session struct {
	id        string
	token     *oauth2.Token
	createdAt time.Time
	mu        sync.Mutex
}

// SessionStore hands out per-session provider tokens, refreshing them lazily.
//
// Access goes through Token, which checks expiry (with a safety buffer) and
// refreshes at most once per expiry under the session lock. Concurrent
// requests for the same session serialize on that lock, so an expired token
// triggers a single upstream refresh.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	refresh  RefreshFunc
	now      func() time.Time
}

// NewSessionStore creates a SessionStore. refresh may be nil, in which case
// expired tokens surface as authentication errors.
func NewSessionStore(refresh RefreshFunc) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		refresh:  refresh,
		now:      time.Now,
	}
}

// Create registers a new session holding the given token and returns its id.
func (s *SessionStore) Create(token *oauth2.Token) string {
	id := shared.GenerateID()

	s.mu.Lock()
	s.sessions[id] = &session{id: id, token: token, createdAt: s.now()}
	s.mu.Unlock()

	return id
}

// Token returns a valid access token for the session.
//
// A token expiring inside the buffer window is refreshed in place before
// being returned. Missing sessions, missing tokens, and failed refreshes all
// surface as [shared.ErrNotAuthenticated] so handlers map them to 401.
func (s *SessionStore) Token(ctx context.Context, sessionID string) (*oauth2.Token, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown session", shared.ErrNotAuthenticated)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.token == nil {
		return nil, fmt.Errorf("%w: session has no token", shared.ErrNotAuthenticated)
	}

	if s.valid(sess.token) {
		return sess.token, nil
	}

	if s.refresh == nil || sess.token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired", shared.ErrNotAuthenticated)
	}

	refreshed, err := s.refresh(ctx, sess.token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh failed: %v", shared.ErrNotAuthenticated, err)
	}

	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = sess.token.RefreshToken
	}
	sess.token = refreshed

	return sess.token, nil
}

// Destroy removes a session. Destroying an unknown id is a no-op.
func (s *SessionStore) Destroy(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) valid(token *oauth2.Token) bool {
	if token.AccessToken == "" {
		return false
	}
	if token.Expiry.IsZero() {
		return true
	}
	return token.Expiry.After(s.now().Add(tokenExpiryBuffer))
}

// SessionID extracts the session id from the request cookie.
func SessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetSessionCookie writes the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
