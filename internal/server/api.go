package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
	"github.com/desertthunder/mixstats/internal/tasks"
	"golang.org/x/oauth2"
)

// ProviderFactory builds a music provider bound to a session's token.
// Each request gets its own provider so sessions never share token state.
type ProviderFactory func(token *oauth2.Token) services.Provider

// ResultCache is the slice of the analysis cache the API needs.
// Implemented by repositories.AnalysisCache.
type ResultCache interface {
	Lookup(playlistID string) (*tasks.AnalysisResult, bool, error)
	Store(playlistID string, result *tasks.AnalysisResult) error
}

// EngineFactory builds the analysis engine for a provider. Swappable in tests.
type EngineFactory func(provider services.Provider) tasks.AnalysisEngine

// API wires the analysis endpoints, session handling, and the web OAuth flow
// into a single router.
type API struct {
	sessions *SessionStore
	cache    ResultCache
	provider ProviderFactory
	engine   EngineFactory
	oauth    *oauth2.Config
	logger   *log.Logger

	mu            sync.Mutex
	pendingStates map[string]bool
}

// NewAPI creates the API surface. cache may be nil to disable caching;
// oauth may be nil when the web login flow is not needed (tests).
func NewAPI(sessions *SessionStore, cache ResultCache, provider ProviderFactory, oauth *oauth2.Config, logger *log.Logger) *API {
	return &API{
		sessions: sessions,
		cache:    cache,
		provider: provider,
		engine: func(p services.Provider) tasks.AnalysisEngine {
			return tasks.NewPlaylistAnalyzer(p)
		},
		oauth:         oauth,
		logger:        logger,
		pendingStates: make(map[string]bool),
	}
}

// SetEngineFactory overrides the analysis engine constructor (tests).
func (a *API) SetEngineFactory(factory EngineFactory) {
	a.engine = factory
}

// Router assembles all routes with logging and recovery middleware.
func (a *API) Router() http.Handler {
	router := NewBasicRouter()
	router.Use(RecoveryMiddleware(a.logger), LoggingMiddleware(a.logger))

	router.Handle("GET", "/api/health", http.HandlerFunc(a.handleHealth))
	router.Handle("GET", "/api/playlists", http.HandlerFunc(a.handlePlaylists))
	router.Handle("GET", "/api/playlists/{id}/analysis", http.HandlerFunc(a.handleAnalysis))
	router.Handle("GET", "/api/me", http.HandlerFunc(a.handleProfile))
	router.Handle("GET", "/auth/login", http.HandlerFunc(a.handleLogin))
	router.Handle("GET", "/auth/callback", http.HandlerFunc(a.handleCallback))
	router.Handle("POST", "/auth/logout", http.HandlerFunc(a.handleLogout))

	return router
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalysis serves GET /api/playlists/{id}/analysis. Fresh cached
// results are returned without touching the upstream provider.
func (a *API) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	playlistID := r.PathValue("id")
	if playlistID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "playlist id required")
		return
	}

	if a.cache != nil {
		if result, hit, err := a.cache.Lookup(playlistID); err != nil {
			a.logger.Warn("cache lookup failed", "playlist", playlistID, "error", err)
		} else if hit {
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	provider, err := a.sessionProvider(r)
	if err != nil {
		a.writeErrorFor(w, err)
		return
	}

	result, err := a.engine(provider).Analyze(r.Context(), playlistID, nil)
	if err != nil {
		a.writeErrorFor(w, err)
		return
	}

	if a.cache != nil {
		if err := a.cache.Store(playlistID, result); err != nil {
			a.logger.Warn("cache store failed", "playlist", playlistID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	provider, err := a.sessionProvider(r)
	if err != nil {
		a.writeErrorFor(w, err)
		return
	}

	playlists, err := provider.Playlists(r.Context())
	if err != nil {
		a.writeErrorFor(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	provider, err := a.sessionProvider(r)
	if err != nil {
		a.writeErrorFor(w, err)
		return
	}

	user, err := provider.UserProfile(r.Context())
	if err != nil {
		a.writeErrorFor(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleLogin starts the web OAuth flow with a fresh state token.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "oauth is not configured")
		return
	}

	state := shared.GenerateID()
	a.mu.Lock()
	a.pendingStates[state] = true
	a.mu.Unlock()

	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the web OAuth flow and establishes a session.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	if a.oauth == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "oauth is not configured")
		return
	}

	state := r.URL.Query().Get("state")
	a.mu.Lock()
	valid := a.pendingStates[state]
	delete(a.pendingStates, state)
	a.mu.Unlock()

	if !valid {
		writeError(w, http.StatusBadRequest, "invalid_state", "state parameter mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "authorization_failed", r.URL.Query().Get("error"))
		return
	}

	token, err := a.oauth.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("token exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "token_exchange_failed", err.Error())
		return
	}

	sessionID := a.sessions.Create(token)
	SetSessionCookie(w, sessionID)

	http.Redirect(w, r, "/api/me", http.StatusFound)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := SessionID(r); id != "" {
		a.sessions.Destroy(id)
	}
	ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// sessionProvider resolves the request's session to a provider holding a
// valid token.
func (a *API) sessionProvider(r *http.Request) (services.Provider, error) {
	token, err := a.sessions.Token(r.Context(), SessionID(r))
	if err != nil {
		return nil, err
	}
	return a.provider(token), nil
}

// writeErrorFor maps pipeline errors onto the response contract:
// 401 not_authenticated, 502 upstream_fetch_failed (with upstream status and
// body), 500 analysis_failed for everything else.
func (a *API) writeErrorFor(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
	case errors.Is(err, shared.ErrUpstreamFetch):
		payload := map[string]any{"error": "upstream_fetch_failed"}
		var upstream *shared.UpstreamError
		if errors.As(err, &upstream) {
			payload["endpoint"] = upstream.Endpoint
			payload["status"] = upstream.Status
			payload["body"] = upstream.Body
		}
		writeJSON(w, http.StatusBadGateway, payload)
	default:
		a.logger.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis_failed", "analysis could not be completed")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"error": code, "detail": detail})
}
