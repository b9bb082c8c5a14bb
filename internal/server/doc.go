// Package server provides HTTP routing, middleware, sessions, and OAuth handling for the analysis API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Sessions and Tokens
//
// [SessionStore] keeps one provider token per browser session. Token access
// checks expiry with a safety buffer and refreshes lazily under the session
// lock, so concurrent requests on an expired session trigger one refresh.
//
// # OAuth Flows
//
// Two flows share the same oauth2 config:
//
//   - CLI: [OAuthHandler] runs on a temporary localhost server, collects the
//     single authorization callback, and hands the token back over a channel.
//   - Web: [API] serves /auth/login and /auth/callback, storing the exchanged
//     token in a cookie-backed session.
//
// # Analysis API
//
// [API] exposes the JSON endpoints:
//
//	GET  /api/health                     → liveness probe
//	GET  /api/playlists                  → current user's playlists
//	GET  /api/playlists/{id}/analysis    → computed (or cached) analysis
//	GET  /api/me                         → current user profile
//	GET  /auth/login                     → OAuth initiation
//	GET  /auth/callback                  → OAuth completion, session creation
//	POST /auth/logout                    → session teardown
//
// Pipeline errors map to 401 (not authenticated), 502 (upstream fetch failure,
// carrying the upstream status and body), and 500 (analysis failure).
package server
