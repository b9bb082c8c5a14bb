// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Create a config.toml from the embedded template",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles Spotify authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show current authentication state",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// analyzeCommand runs the analysis pipeline against a playlist
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "analyze",
		Aliases: []string{"an"},
		Usage:   "Analyze a playlist's audio profile, artists, and genres",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Playlist ID to analyze",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the local analysis cache",
			},
		},
		Action: r.Analyze,
	}
}

// exportCommand writes an analysis report to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a playlist analysis report",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Playlist ID to analyze",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format: csv, markdown, or json",
				Value: "markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output path (base filename for csv, directory for markdown)",
			},
		},
		Action: r.Export,
	}
}

// cacheCommand inspects and clears the local analysis cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local analysis cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached analyses",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "clear",
				Usage: "Remove a cached analysis (or all of them)",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Playlist ID to evict; omit to clear everything",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}

// serveCommand starts the HTTP analysis API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the playlist analysis HTTP API",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive analysis.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist analysis",
		Action:  r.TUI,
	}
}
