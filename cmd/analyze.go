package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/mixstats/internal/repositories"
	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/shared"
	"github.com/desertthunder/mixstats/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Analyze runs the full analysis pipeline against a playlist and prints the
// result, consulting the local cache unless --no-cache is set.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")

	if err := r.authenticate(ctx, cmd.String("config")); err != nil {
		return err
	}

	cache, cleanup, err := r.openCache(cmd.String("config"))
	if err != nil {
		r.logger.Warn("analysis cache unavailable", "error", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	useCache := cache != nil && !cmd.Bool("no-cache")

	if useCache {
		if result, ok, err := cache.Lookup(playlistID); err != nil {
			r.logger.Warn("cache lookup failed", "error", err)
		} else if ok {
			r.logger.Info("using cached analysis", "playlist", playlistID)
			return r.printAnalysis(result, cmd.Bool("json"), cmd.Bool("pretty"))
		}
	}

	result, err := r.runAnalysis(ctx, playlistID)
	if err != nil {
		return err
	}

	if useCache {
		if err := cache.Store(playlistID, result); err != nil {
			r.logger.Warn("failed to cache analysis", "error", err)
		}
	}

	return r.printAnalysis(result, cmd.Bool("json"), cmd.Bool("pretty"))
}

// runAnalysis executes the engine with progress reported through the logger.
func (r *Runner) runAnalysis(ctx context.Context, playlistID string) (*tasks.AnalysisResult, error) {
	if r.engine == nil {
		return nil, fmt.Errorf("%w: Spotify credentials not configured", shared.ErrMissingCredentials)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := r.engine.Analyze(ctx, playlistID, progress)
	close(progress)
	<-done

	if err != nil {
		return nil, err
	}
	return result, nil
}

// printAnalysis writes the result as JSON or a plain-text summary.
func (r *Runner) printAnalysis(result *tasks.AnalysisResult, asJSON, pretty bool) error {
	if asJSON {
		return r.writeJSON(result, pretty)
	}

	r.writePlainHeader(result.Playlist.Name)
	if result.Playlist.Owner != "" {
		r.writePlain("Owner: %s\n", result.Playlist.Owner)
	}
	r.writePlain("Tracks: %d\n", result.Playlist.TotalTracks)
	r.writePlain("Duration: %s\n", result.Playlist.DurationHuman)

	if len(result.Analysis.AvgFeatures) > 0 {
		r.writePlainln("Audio profile (%d of %d tracks):", result.Analysis.FeaturesCount, result.Playlist.TotalTracks)
		for _, name := range []string{"danceability", "energy", "valence", "acousticness", "tempo"} {
			if v, ok := result.Analysis.AvgFeatures[name]; ok {
				r.writePlain("  %-14s %.3f\n", name, v)
			}
		}
	}

	if len(result.Analysis.TopArtists) > 0 {
		r.writePlainln("Top artists:")
		for i, artist := range result.Analysis.TopArtists {
			r.writePlain("  %d. %s (%d tracks)\n", i+1, artist.Name, artist.Count)
		}
	}

	if len(result.Analysis.TopTracks) > 0 {
		r.writePlainln("Top tracks:")
		for i, track := range result.Analysis.TopTracks {
			r.writePlain("  %d. %s by %s (popularity %d)\n", i+1, track.Name, track.Artists, track.Popularity)
		}
	}

	if len(result.Analysis.TopGenres) > 0 {
		r.writePlainln("Top genres:")
		for i, genre := range result.Analysis.TopGenres {
			r.writePlain("  %d. %s (%d)\n", i+1, genre.Genre, genre.Count)
		}
	}

	return nil
}

// authenticate loads persisted token material into the provider, wiring a
// refresh callback that writes renewed tokens back to the config file.
func (r *Runner) authenticate(ctx context.Context, configPath string) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify credentials not configured (run 'mixstats setup config')", shared.ErrMissingCredentials)
	}

	config, err := r.loadConfig(configPath)
	if err != nil {
		return err
	}
	r.config = config

	if config.Credentials.Spotify.Token() == nil {
		return fmt.Errorf("%w: run 'mixstats auth login' first", shared.ErrNotAuthenticated)
	}

	if err := r.spotify.Authenticate(ctx, config.Credentials.Spotify.Map()); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if svc, ok := r.spotify.(*services.SpotifyService); ok {
		svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := config.Credentials.Spotify.Update(token); err != nil {
				r.logger.Warn("failed to record refreshed token", "error", err)
				return
			}
			if err := shared.SaveConfig(configPath, config); err != nil {
				r.logger.Warn("failed to persist refreshed token", "error", err)
			}
		})
	}

	return nil
}

// openCache opens the sqlite-backed analysis cache per the config. Returns a
// nil cache when caching is disabled.
func (r *Runner) openCache(configPath string) (*repositories.AnalysisCache, func(), error) {
	config, err := r.loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	if config.Analysis.CacheMinutes <= 0 || config.Database.Path == "" {
		return nil, nil, nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repositories.NewAnalysisRepository(db)
	window := time.Duration(config.Analysis.CacheMinutes) * time.Minute
	cache := repositories.NewAnalysisCache(repo, window)

	return cache, func() { db.Close() }, nil
}
