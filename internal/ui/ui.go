package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixstats/internal/services"
	"github.com/desertthunder/mixstats/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	AnalyzeView
	ResultView
)

type playlistsFetchedMsg struct {
	playlists []services.Playlist
	err       error
}

type progressUpdateMsg tasks.ProgressUpdate

type analysisCompleteMsg struct {
	result *tasks.AnalysisResult
	err    error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	provider     services.Provider
	engine       tasks.AnalysisEngine
	width        int
	height       int
	playlistList list.Model
	playlists    []services.Playlist
	selected     services.Playlist
	progressChan chan tasks.ProgressUpdate
	done         chan analysisCompleteMsg
	progress     tasks.ProgressUpdate
	result       *tasks.AnalysisResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, provider services.Provider, engine tasks.AnalysisEngine) *Model {
	return &Model{
		ctx:      ctx,
		view:     PlaylistListView,
		provider: provider,
		engine:   engine,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by fetching the user's playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.playlists = msg.playlists
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Your Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case analysisCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateList(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case AnalyzeView:
		return m.renderAnalyze()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if pl, ok := selected.(playlistItem); ok {
				m.selected = pl.playlist
				m.view = AnalyzeView
				return m, m.startAnalysis()
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r", "esc":
		m.view = PlaylistListView
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == PlaylistListView {
		m.playlistList, cmd = m.playlistList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.provider.Playlists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) startAnalysis() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan analysisCompleteMsg, 1)

	progressChan := m.progressChan
	done := m.done
	go func() {
		result, err := m.engine.Analyze(m.ctx, m.selected.ID, progressChan)
		close(progressChan)
		done <- analysisCompleteMsg{result: result, err: err}
	}()

	return m.waitForProgress()
}

// waitForProgress blocks on the next progress update; once the stream drains
// it delivers the final analysis outcome instead.
func (m *Model) waitForProgress() tea.Cmd {
	progressChan := m.progressChan
	done := m.done
	if progressChan == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderAnalyze() string {
	title := styles.title.Render(fmt.Sprintf("Analyzing '%s'", m.selected.Name))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchMetadata:
		phase = "Fetching playlist metadata..."
	case tasks.FetchTracks:
		phase = "Fetching tracks..."
	case tasks.FetchFeatures:
		phase = "Fetching audio features..."
	case tasks.FetchArtists:
		phase = "Fetching artist metadata..."
	case tasks.Aggregate:
		phase = "Computing statistics..."
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Analysis failed: %v\n\nPress r to retry, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render(fmt.Sprintf("✓ Analyzed %s", m.result.Playlist.Name))
	info := fmt.Sprintf(
		"\nOwner: %s\nTracks: %d\nDuration: %s\n",
		m.result.Playlist.Owner,
		m.result.Playlist.TotalTracks,
		m.result.Playlist.DurationHuman,
	)

	var sections []string
	if len(m.result.Analysis.AvgFeatures) > 0 {
		sections = append(sections, m.renderFeatures())
	}
	if len(m.result.Analysis.TopArtists) > 0 {
		sections = append(sections, m.renderTopArtists())
	}
	if len(m.result.Analysis.TopGenres) > 0 {
		sections = append(sections, m.renderTopGenres())
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, info, strings.Join(sections, "\n\n"), helpView)
}

func (m *Model) renderFeatures() string {
	var b strings.Builder
	b.WriteString(styles.warn.Render("Audio profile"))
	for _, name := range []string{"danceability", "energy", "valence", "tempo"} {
		if value, ok := m.result.Analysis.AvgFeatures[name]; ok {
			b.WriteString(fmt.Sprintf("\n  %s: %s", name, strconv.FormatFloat(value, 'f', -1, 64)))
		}
	}
	return b.String()
}

func (m *Model) renderTopArtists() string {
	var b strings.Builder
	b.WriteString(styles.warn.Render("Top artists"))
	for i, artist := range m.result.Analysis.TopArtists {
		if i == 5 {
			break
		}
		b.WriteString(fmt.Sprintf("\n  %d. %s (%d)", i+1, artist.Name, artist.Count))
	}
	return b.String()
}

func (m *Model) renderTopGenres() string {
	var b strings.Builder
	b.WriteString(styles.warn.Render("Top genres"))
	for i, genre := range m.result.Analysis.TopGenres {
		if i == 5 {
			break
		}
		b.WriteString(fmt.Sprintf("\n  %d. %s (%d)", i+1, genre.Genre, genre.Count))
	}
	return b.String()
}
