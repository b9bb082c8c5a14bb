package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mixstats/internal/shared"
	"golang.org/x/oauth2"
)

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored token while valid", func(t *testing.T) {
		refreshCalls := 0
		store := NewSessionStore(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			refreshCalls++
			return &oauth2.Token{AccessToken: "refreshed"}, nil
		})

		id := store.Create(&oauth2.Token{
			AccessToken:  "original",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(time.Hour),
		})

		token, err := store.Token(ctx, id)
		if err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if token.AccessToken != "original" {
			t.Errorf("Expected original token, got %s", token.AccessToken)
		}
		if refreshCalls != 0 {
			t.Errorf("Expected no refresh for valid token, got %d calls", refreshCalls)
		}
	})

	t.Run("refreshes an expired token exactly once", func(t *testing.T) {
		refreshCalls := 0
		store := NewSessionStore(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			refreshCalls++
			if refreshToken != "refresh" {
				t.Errorf("Expected refresh token passed through, got %s", refreshToken)
			}
			return &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}, nil
		})

		id := store.Create(&oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Minute),
		})

		token, err := store.Token(ctx, id)
		if err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if token.AccessToken != "refreshed" {
			t.Errorf("Expected refreshed token, got %s", token.AccessToken)
		}
		if refreshCalls != 1 {
			t.Fatalf("Expected exactly one refresh call, got %d", refreshCalls)
		}

		// Second read uses the refreshed token without another round trip.
		if _, err := store.Token(ctx, id); err != nil {
			t.Fatalf("Token failed on second read: %v", err)
		}
		if refreshCalls != 1 {
			t.Errorf("Expected no further refresh calls, got %d", refreshCalls)
		}
	})

	t.Run("treats tokens inside the expiry buffer as expired", func(t *testing.T) {
		refreshCalls := 0
		store := NewSessionStore(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			refreshCalls++
			return &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}, nil
		})

		id := store.Create(&oauth2.Token{
			AccessToken:  "nearly-expired",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(30 * time.Second),
		})

		if _, err := store.Token(ctx, id); err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if refreshCalls != 1 {
			t.Errorf("Expected refresh inside buffer window, got %d calls", refreshCalls)
		}
	})

	t.Run("serializes concurrent refreshes to one upstream call", func(t *testing.T) {
		refreshCalls := 0
		store := NewSessionStore(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			refreshCalls++
			time.Sleep(10 * time.Millisecond)
			return &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}, nil
		})

		id := store.Create(&oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Minute),
		})

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Token(ctx, id); err != nil {
					t.Errorf("Token failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if refreshCalls != 1 {
			t.Errorf("Expected one refresh across concurrent readers, got %d", refreshCalls)
		}
	})

	t.Run("keeps the old refresh token when the response omits one", func(t *testing.T) {
		store := NewSessionStore(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "refreshed"}, nil
		})

		id := store.Create(&oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Minute),
		})

		token, err := store.Token(ctx, id)
		if err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if token.RefreshToken != "refresh" {
			t.Errorf("Expected refresh token preserved, got %q", token.RefreshToken)
		}
	})

	t.Run("unknown session is not authenticated", func(t *testing.T) {
		store := NewSessionStore(nil)

		_, err := store.Token(ctx, "missing")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("Expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("expired token without refresh support is not authenticated", func(t *testing.T) {
		store := NewSessionStore(nil)

		id := store.Create(&oauth2.Token{
			AccessToken: "stale",
			Expiry:      time.Now().Add(-time.Minute),
		})

		_, err := store.Token(ctx, id)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("Expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("failed refresh surfaces as not authenticated", func(t *testing.T) {
		store := NewSessionStore(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			return nil, errors.New("upstream said no")
		})

		id := store.Create(&oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Minute),
		})

		_, err := store.Token(ctx, id)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("Expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("destroy removes the session", func(t *testing.T) {
		store := NewSessionStore(nil)

		id := store.Create(&oauth2.Token{AccessToken: "tok"})
		if store.Count() != 1 {
			t.Fatalf("Expected one session, got %d", store.Count())
		}

		store.Destroy(id)
		if store.Count() != 0 {
			t.Errorf("Expected no sessions after destroy, got %d", store.Count())
		}

		if _, err := store.Token(ctx, id); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("Expected ErrNotAuthenticated after destroy, got %v", err)
		}
	})
}
