package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/mixstats/internal/formatter"
	"github.com/desertthunder/mixstats/internal/shared"
	"github.com/desertthunder/mixstats/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export runs (or retrieves) an analysis and writes a report to disk in the
// requested format: csv, markdown, or json.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	format := cmd.String("format")
	outputPath := cmd.String("output")

	if err := r.authenticate(ctx, cmd.String("config")); err != nil {
		return err
	}

	result, err := r.lookupOrAnalyze(ctx, cmd.String("config"), playlistID)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		exported, err := formatter.WriteCSVExport(result, outputPath)
		if err != nil {
			return fmt.Errorf("csv export failed: %w", err)
		}
		r.writePlain("✓ Wrote %s\n", exported.TracksFile)
		r.writePlain("✓ Wrote %s\n", exported.AnalysisFile)

	case "markdown", "md":
		exported, err := formatter.WriteMarkdownExport(result, outputPath)
		if err != nil {
			return fmt.Errorf("markdown export failed: %w", err)
		}
		for _, file := range exported.Files {
			r.writePlain("✓ Wrote %s\n", file)
		}

	case "json":
		data, err := formatter.ToResultJSON(result)
		if err != nil {
			return fmt.Errorf("json export failed: %w", err)
		}
		if outputPath == "" {
			outputPath = result.Playlist.ID + "_analysis.json"
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write analysis file: %w", err)
		}
		r.writePlain("✓ Wrote %s\n", outputPath)

	default:
		return fmt.Errorf("%w: unknown format %q (expected csv, markdown, or json)", shared.ErrInvalidArgument, format)
	}

	return nil
}

// lookupOrAnalyze prefers a fresh cached analysis, falling back to running
// the pipeline.
func (r *Runner) lookupOrAnalyze(ctx context.Context, configPath, playlistID string) (*tasks.AnalysisResult, error) {
	cache, cleanup, err := r.openCache(configPath)
	if err != nil {
		r.logger.Warn("analysis cache unavailable", "error", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if cache != nil {
		if result, ok, err := cache.Lookup(playlistID); err == nil && ok {
			r.logger.Info("using cached analysis", "playlist", playlistID)
			return result, nil
		}
	}

	result, err := r.runAnalysis(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Store(playlistID, result); err != nil {
			r.logger.Warn("failed to cache analysis", "error", err)
		}
	}

	return result, nil
}
