package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/mixstats/internal/server"
	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Serve starts the playlist analysis HTTP API.
//
// Sessions are established through the /auth/login browser flow; analysis
// results are cached in SQLite when the config enables caching.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := r.loadConfig(configPath)
	if err != nil {
		return err
	}
	r.config = config

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, configPath)
	}

	base, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}
	oauthConfig := base.OAuthConfig()

	cache, cleanup, err := r.openCache(configPath)
	if err != nil {
		r.logger.Warn("analysis cache unavailable", "error", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	sessions := server.NewSessionStore(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		source := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		return source.Token()
	})

	providerFactory := func(token *oauth2.Token) services.Provider {
		svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
		if err != nil {
			return nil
		}
		svc.UseTokenSource(oauth2.StaticTokenSource(token))
		return svc
	}

	var resultCache server.ResultCache
	if cache != nil {
		resultCache = cache
	}

	api := server.NewAPI(sessions, resultCache, providerFactory, oauthConfig, r.logger)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("analysis API listening at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		r.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}
