// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist analysis:
//  1. [PlaylistListView] : Browse and select the user's playlists
//  2. [AnalyzeView] : Monitor the analysis pipeline's stage progress
//  3. [ResultView] : Display the computed statistics
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the analysis engine, providing non-blocking status reporting while stages run.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
