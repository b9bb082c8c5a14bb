package shared

import "fmt"

var (
	ErrNotImplemented     = fmt.Errorf("not implemented")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// Pipeline errors
	ErrUpstreamFetch    = fmt.Errorf("upstream fetch failed")
	ErrAnalysisFailed   = fmt.Errorf("analysis failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// UpstreamError records a non-success provider response so callers can surface
// the status code and body for diagnostics. Unwraps to [ErrUpstreamFetch].
type UpstreamError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: %s returned status %d", ErrUpstreamFetch, e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%v: %s returned status %d: %s", ErrUpstreamFetch, e.Endpoint, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamFetch
}
