package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/library"
	"github.com/murexstreams/murex/internal/logging"
	"github.com/murexstreams/murex/internal/market"
	"github.com/murexstreams/murex/internal/playback"
	"github.com/murexstreams/murex/internal/social"
	"github.com/murexstreams/murex/internal/theme"
	"github.com/murexstreams/murex/internal/tui/components"
	"github.com/murexstreams/murex/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelLibrary Panel = iota
	PanelQueue
	PanelPortfolio
)

const panelCount = 3

const searchDebounce = 300 * time.Millisecond

// Options carries the collaborators the UI drives.
type Options struct {
	Player  playback.Service
	Store   *library.Store
	Market  *market.Market
	Graph   *social.Graph
	Themes  *theme.Manager
	Logger  *logging.Logger
	UserID  string
	Refresh time.Duration
}

// App holds the TUI application state
type App struct {
	player  playback.Service
	store   *library.Store
	market  *market.Market
	graph   *social.Graph
	themes  *theme.Manager
	log     *logging.Logger
	userID  string
	refresh time.Duration
	sub     *playback.Subscription
}

// NewApp creates a new TUI application
func NewApp(opts Options) (*App, error) {
	if opts.Player == nil {
		return nil, fmt.Errorf("tui needs a player")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("tui needs a library store")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	refresh := opts.Refresh
	if refresh <= 0 {
		refresh = time.Second
	}

	return &App{
		player:  opts.Player,
		store:   opts.Store,
		market:  opts.Market,
		graph:   opts.Graph,
		themes:  opts.Themes,
		log:     log,
		userID:  opts.UserID,
		refresh: refresh,
		sub:     opts.Player.Subscribe(),
	}, nil
}

// Model is the main TUI model
type Model struct {
	app          *App
	width        int
	height       int
	focusedPanel Panel

	// State
	state     core.PlaybackState
	queue     core.Queue
	tracks    []core.Track
	rows      []components.PortfolioRow
	waveforms map[string][]byte

	// Components
	nowPlaying    *components.NowPlaying
	libraryView   *components.Library
	queueView     *components.Queue
	portfolioView *components.Portfolio
	fullPlayer    *components.FullPlayer

	// Overlays
	showHelp bool

	// Search state
	showSearch    bool
	searchInput   textinput.Model
	searchResults []core.Track
	searchCursor  int
	searching     bool
	lastQuery     string
	searchErr     error

	// Invest state
	showInvest  bool
	investInput textinput.Model
	investTrack core.Track

	// Status bar feedback
	lastError   error
	errorExpiry time.Time
	flash       string
	flashExpiry time.Time

	// Quit flag
	quitting bool
}

// NewModel creates a new TUI model
func NewModel(app *App) Model {
	search := textinput.New()
	search.Placeholder = "Search title, artist or album..."
	search.CharLimit = 100
	search.Width = 50

	invest := textinput.New()
	invest.Placeholder = "5.00"
	invest.CharLimit = 12
	invest.Width = 20

	return Model{
		app:           app,
		focusedPanel:  PanelLibrary,
		state:         app.player.State(),
		waveforms:     make(map[string][]byte),
		nowPlaying:    components.NewNowPlaying(),
		libraryView:   components.NewLibrary(),
		queueView:     components.NewQueue(),
		portfolioView: components.NewPortfolio(),
		fullPlayer:    components.NewFullPlayer(),
		searchInput:   search,
		investInput:   invest,
	}
}

// Messages
type tickMsg time.Time
type stateMsg core.PlaybackState
type queueMsg core.Queue
type tracksMsg []core.Track
type portfolioMsg []components.PortfolioRow
type waveformMsg struct {
	trackID string
	preview []byte
}
type completedMsg core.Track
type errMsg error
type flashMsg string
type refreshAfterActionMsg struct{}
type themeMsg struct {
	palette theme.Palette
	err     error
}

// Search messages
type searchDebounceMsg struct{ query string }
type searchResultsMsg struct {
	results []core.Track
	err     error
}

// Commands
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.app.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(m.app.player.State())
	}
}

func (m Model) fetchQueue() tea.Cmd {
	return func() tea.Msg {
		return queueMsg(m.app.player.Queue())
	}
}

func (m Model) fetchTracks() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tracks, err := m.app.store.Tracks.List(ctx)
		if err != nil {
			return errMsg(err)
		}
		return tracksMsg(tracks)
	}
}

func (m Model) fetchPortfolio() tea.Cmd {
	if m.app.market == nil || m.app.userID == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		positions, err := m.app.market.Portfolio(ctx, m.app.userID, m.app.store.Plays)
		if err != nil {
			return errMsg(err)
		}

		rows := make([]components.PortfolioRow, 0, len(positions))
		for _, pos := range positions {
			title := pos.TrackID
			if track, err := m.app.store.Tracks.ByID(ctx, pos.TrackID); err == nil {
				title = track.Title
			}
			rows = append(rows, components.PortfolioRow{Title: title, Position: pos})
		}
		return portfolioMsg(rows)
	}
}

func (m Model) fetchWaveform(trackID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		analysis, err := m.app.store.Tracks.Analysis(ctx, trackID)
		if err != nil {
			// No preview is fine, the full player falls back to a flat line.
			return waveformMsg{trackID: trackID}
		}
		return waveformMsg{trackID: trackID, preview: analysis.Waveform}
	}
}

// waitPlayer blocks on the playback subscription and turns completions
// and engine errors into messages. Re-armed after every delivery.
func (m Model) waitPlayer() tea.Cmd {
	sub := m.app.sub
	return func() tea.Msg {
		select {
		case track := <-sub.Completed:
			return completedMsg(track)
		case err := <-sub.Errors:
			return errMsg(err)
		case <-sub.Done:
			return nil
		}
	}
}

func (m Model) recordPlay(track core.Track) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := m.app.store.Plays.Record(ctx, track.ID, m.app.userID); err != nil {
			return errMsg(fmt.Errorf("recording play: %w", err))
		}
		return nil
	}
}

func (m Model) doSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if query == "" {
			return searchResultsMsg{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		results, err := m.app.store.Tracks.Search(ctx, query)
		if err != nil {
			return searchResultsMsg{err: err}
		}
		return searchResultsMsg{results: results}
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		m.fetchState(),
		m.fetchQueue(),
		m.fetchTracks(),
		m.fetchPortfolio(),
		m.waitPlayer(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.tick(), m.fetchState())

	case stateMsg:
		m.clearExpired()
		oldID := ""
		if m.state.HasTrack() {
			oldID = m.state.Track.ID
		}
		m.state = core.PlaybackState(msg)

		newID := ""
		if m.state.HasTrack() {
			newID = m.state.Track.ID
		}
		if newID != oldID {
			cmds := []tea.Cmd{m.fetchQueue()}
			if newID != "" {
				if _, ok := m.waveforms[newID]; !ok {
					cmds = append(cmds, m.fetchWaveform(newID))
				}
			}
			return m, tea.Batch(cmds...)
		}
		return m, nil

	case queueMsg:
		m.clearExpired()
		m.queue = core.Queue(msg)
		return m, nil

	case tracksMsg:
		m.clearExpired()
		m.tracks = msg
		return m, nil

	case portfolioMsg:
		m.clearExpired()
		m.rows = msg
		return m, nil

	case waveformMsg:
		m.waveforms[msg.trackID] = msg.preview
		return m, nil

	case completedMsg:
		track := core.Track(msg)
		return m, tea.Batch(m.recordPlay(track), m.fetchPortfolio(), m.waitPlayer())

	case errMsg:
		if msg != nil {
			m.lastError = msg
			m.errorExpiry = time.Now().Add(5 * time.Second)
		}
		return m, nil

	case flashMsg:
		m.flash = string(msg)
		m.flashExpiry = time.Now().Add(4 * time.Second)
		return m, nil

	case refreshAfterActionMsg:
		return m, tea.Batch(m.fetchState(), m.fetchQueue())

	case themeMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.errorExpiry = time.Now().Add(5 * time.Second)
		}
		styles.Apply(msg.palette)
		m.flash = "Theme: " + msg.palette.Name
		m.flashExpiry = time.Now().Add(4 * time.Second)
		return m, nil

	case searchDebounceMsg:
		if msg.query == m.searchInput.Value() && msg.query != m.lastQuery {
			m.lastQuery = msg.query
			m.searching = true
			return m, m.doSearch(msg.query)
		}

	case searchResultsMsg:
		m.searching = false
		m.searchResults = msg.results
		m.searchErr = msg.err
		m.searchCursor = 0
		return m, nil
	}

	// Forward other messages to the active text input.
	if m.showSearch {
		var inputCmd tea.Cmd
		m.searchInput, inputCmd = m.searchInput.Update(msg)
		return m, inputCmd
	}
	if m.showInvest {
		var inputCmd tea.Cmd
		m.investInput, inputCmd = m.investInput.Update(msg)
		return m, inputCmd
	}

	return m, nil
}

func (m *Model) clearExpired() {
	if m.lastError != nil && time.Now().After(m.errorExpiry) {
		m.lastError = nil
	}
	if m.flash != "" && time.Now().After(m.flashExpiry) {
		m.flash = ""
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys (always work)
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	// Search overlay
	if m.showSearch {
		return m.handleSearchKeyPress(msg)
	}

	// Invest overlay
	if m.showInvest {
		return m.handleInvestKeyPress(msg)
	}

	// Full player mode
	if m.state.FullPlayer {
		return m.handleFullPlayerKeyPress(msg)
	}

	// Normal mode
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "/":
		m.showSearch = true
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.searchResults = nil
		m.searchCursor = 0
		m.lastQuery = ""
		m.searchErr = nil
		return m, textinput.Blink

	case "tab":
		m.focusedPanel = (m.focusedPanel + 1) % panelCount
		return m, nil

	case "shift+tab":
		m.focusedPanel = (m.focusedPanel + panelCount - 1) % panelCount
		return m, nil

	case "t":
		return m, m.cycleTheme()

	case "f":
		m.app.player.OpenFullPlayer()
		return m, m.fetchState()

	case "m":
		if m.state.MiniPlayer {
			m.app.player.HideMiniPlayer()
		} else {
			m.app.player.ShowMiniPlayer()
		}
		return m, m.fetchState()

	case "r":
		return m, tea.Batch(m.fetchState(), m.fetchQueue(), m.fetchTracks(), m.fetchPortfolio())
	}

	// Playback controls
	switch msg.String() {
	case " ":
		return m, m.playerAction(m.app.player.Toggle)
	case "n":
		return m, m.playerAction(m.app.player.Next)
	case "p":
		return m, m.playerAction(m.app.player.Previous)
	case "x":
		return m, m.playerAction(m.app.player.Stop)
	case "+", "=":
		return m, m.changeVolume(0.05)
	case "-":
		return m, m.changeVolume(-0.05)
	case "S":
		m.app.player.ToggleShuffle()
		return m, m.fetchState()
	case "R":
		m.app.player.CycleRepeatMode()
		return m, m.fetchState()
	}

	// Panel-specific keys
	switch m.focusedPanel {
	case PanelLibrary:
		switch msg.String() {
		case "j", "down":
			m.libraryView.SelectNext()
		case "k", "up":
			m.libraryView.SelectPrev()
		case "enter":
			return m, m.playFromLibrary(m.libraryView.Selected())
		case "a":
			return m, m.queueFromLibrary(m.libraryView.Selected())
		case "l":
			return m, m.likeSelected(m.libraryView.Selected())
		case "$":
			return m.openInvest(m.libraryView.Selected())
		}
	case PanelQueue:
		switch msg.String() {
		case "j", "down":
			m.queueView.SelectNext()
		case "k", "up":
			m.queueView.SelectPrev()
		case "enter":
			return m, m.jumpToQueued(m.queueView.Selected())
		case "c":
			return m, m.playerAction(m.app.player.Clear)
		}
	case PanelPortfolio:
		switch msg.String() {
		case "j", "down":
			m.portfolioView.ScrollDown()
		case "k", "up":
			m.portfolioView.ScrollUp()
		}
	}

	return m, nil
}

func (m Model) handleFullPlayerKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "esc", "f":
		m.app.player.CloseFullPlayer()
		return m, m.fetchState()
	case " ":
		return m, m.playerAction(m.app.player.Toggle)
	case "n":
		return m, m.playerAction(m.app.player.Next)
	case "p":
		return m, m.playerAction(m.app.player.Previous)
	case "left":
		return m, m.seekBy(-10 * time.Second)
	case "right":
		return m, m.seekBy(10 * time.Second)
	case "+", "=":
		return m, m.changeVolume(0.05)
	case "-":
		return m, m.changeVolume(-0.05)
	}
	return m, nil
}

func (m Model) handleSearchKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "esc":
		m.showSearch = false
		m.searchInput.Blur()
		return m, nil

	case "enter":
		if len(m.searchResults) > 0 && m.searchCursor < len(m.searchResults) {
			track := m.searchResults[m.searchCursor]
			m.showSearch = false
			m.searchInput.Blur()
			return m, m.playTracks([]core.Track{track}, 0)
		}
		return m, nil

	case "up", "ctrl+p":
		if m.searchCursor > 0 {
			m.searchCursor--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.searchCursor < len(m.searchResults)-1 {
			m.searchCursor++
		}
		return m, nil

	case "ctrl+q":
		if len(m.searchResults) > 0 && m.searchCursor < len(m.searchResults) {
			track := m.searchResults[m.searchCursor]
			m.showSearch = false
			m.searchInput.Blur()
			return m, m.addToQueue(track)
		}
		return m, nil
	}

	// Handle text input
	var inputCmd tea.Cmd
	m.searchInput, inputCmd = m.searchInput.Update(msg)
	cmds = append(cmds, inputCmd)

	// Debounce search
	if m.searchInput.Value() != m.lastQuery {
		query := m.searchInput.Value()
		cmds = append(cmds, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
			return searchDebounceMsg{query: query}
		}))
	}

	return m, tea.Batch(cmds...)
}

func (m Model) openInvest(index int) (tea.Model, tea.Cmd) {
	if m.app.market == nil {
		return m, func() tea.Msg { return errMsg(fmt.Errorf("market is disabled")) }
	}
	if m.app.userID == "" {
		return m, func() tea.Msg { return errMsg(fmt.Errorf("log in to invest: murex auth login")) }
	}
	if index < 0 || index >= len(m.tracks) {
		return m, nil
	}
	m.showInvest = true
	m.investTrack = m.tracks[index]
	m.investInput.SetValue("")
	m.investInput.Focus()
	return m, textinput.Blink
}

func (m Model) handleInvestKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.showInvest = false
		m.investInput.Blur()
		return m, nil

	case "enter":
		cents, err := market.ParseCents(m.investInput.Value())
		if err != nil {
			return m, func() tea.Msg { return errMsg(err) }
		}
		track := m.investTrack
		m.showInvest = false
		m.investInput.Blur()
		return m, m.invest(track, cents)
	}

	var inputCmd tea.Cmd
	m.investInput, inputCmd = m.investInput.Update(msg)
	return m, inputCmd
}

// playerAction wraps a transport call in a command.
func (m Model) playerAction(action func() error) tea.Cmd {
	return func() tea.Msg {
		if err := action(); err != nil {
			return errMsg(err)
		}
		return refreshAfterActionMsg{}
	}
}

func (m Model) playTracks(tracks []core.Track, index int) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.player.PlayQueue(tracks, index); err != nil {
			return errMsg(err)
		}
		return refreshAfterActionMsg{}
	}
}

func (m Model) playFromLibrary(index int) tea.Cmd {
	if index < 0 || index >= len(m.tracks) {
		return nil
	}
	// Play onward from the selected row.
	tracks := make([]core.Track, len(m.tracks))
	copy(tracks, m.tracks)
	return m.playTracks(tracks, index)
}

func (m Model) queueFromLibrary(index int) tea.Cmd {
	if index < 0 || index >= len(m.tracks) {
		return nil
	}
	return m.addToQueue(m.tracks[index])
}

func (m Model) addToQueue(track core.Track) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.player.Add(track); err != nil {
			return errMsg(err)
		}
		return flashMsg("Queued: " + track.Title)
	}
}

func (m Model) jumpToQueued(index int) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.player.JumpTo(index); err != nil {
			return errMsg(err)
		}
		return refreshAfterActionMsg{}
	}
}

func (m Model) likeSelected(index int) tea.Cmd {
	if m.app.graph == nil {
		return func() tea.Msg { return errMsg(fmt.Errorf("social graph is disabled")) }
	}
	if m.app.userID == "" {
		return func() tea.Msg { return errMsg(fmt.Errorf("log in to like tracks: murex auth login")) }
	}
	if index < 0 || index >= len(m.tracks) {
		return nil
	}
	track := m.tracks[index]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		changed, err := m.app.graph.Like(ctx, m.app.userID, track.ID)
		if err != nil {
			return errMsg(err)
		}
		if !changed {
			return flashMsg("Already liked: " + track.Title)
		}
		return flashMsg("♥ " + track.Title)
	}
}

func (m Model) invest(track core.Track, cents int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := m.app.market.Invest(ctx, m.app.userID, track.ID, cents); err != nil {
			return errMsg(err)
		}
		return flashMsg(fmt.Sprintf("Invested %s in %s", market.FormatCents(cents), track.Title))
	}
}

func (m Model) cycleTheme() tea.Cmd {
	if m.app.themes == nil {
		return nil
	}
	manager := m.app.themes
	return func() tea.Msg {
		names := theme.Names()
		current := manager.Active().Name
		next := names[0]
		for i, name := range names {
			if name == current {
				next = names[(i+1)%len(names)]
				break
			}
		}
		palette, err := manager.Set(next)
		return themeMsg{palette: palette, err: err}
	}
}

func (m Model) changeVolume(delta float64) tea.Cmd {
	return func() tea.Msg {
		vol := m.state.Volume + delta
		if vol > 1 {
			vol = 1
		}
		if vol < 0 {
			vol = 0
		}
		if err := m.app.player.SetVolume(vol); err != nil {
			return errMsg(err)
		}
		return refreshAfterActionMsg{}
	}
}

func (m Model) seekBy(delta time.Duration) tea.Cmd {
	return func() tea.Msg {
		if err := m.app.player.Seek(delta); err != nil {
			return errMsg(err)
		}
		return refreshAfterActionMsg{}
	}
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.showSearch {
		return m.renderSearch()
	}

	if m.showInvest {
		return m.renderInvest()
	}

	if m.state.FullPlayer {
		waveform := []byte(nil)
		if m.state.HasTrack() {
			waveform = m.waveforms[m.state.Track.ID]
		}
		return m.fullPlayer.Render(&m.state, waveform, m.width, m.height)
	}

	// Main layout: player bar on top, library on the left, queue and
	// portfolio stacked on the right.
	npHeight := 11
	if m.state.MiniPlayer {
		npHeight = 3
	}

	var npBar string
	if m.state.MiniPlayer {
		npBar = m.nowPlaying.RenderMini(&m.state, m.width-2)
	} else {
		npBar = m.nowPlaying.Render(&m.state, m.width-2, npHeight-2, false)
	}

	bodyHeight := m.height - npHeight - 1
	leftWidth := m.width * 55 / 100
	rightWidth := m.width - leftWidth - 2
	queueHeight := bodyHeight / 2
	portfolioHeight := bodyHeight - queueHeight

	currentID := ""
	if m.state.HasTrack() {
		currentID = m.state.Track.ID
	}

	libraryView := m.libraryView.Render(m.tracks, currentID, leftWidth-2, bodyHeight-2, m.focusedPanel == PanelLibrary)
	queueView := m.queueView.Render(&m.queue, rightWidth-2, queueHeight-2, m.focusedPanel == PanelQueue)
	portfolioView := m.portfolioView.Render(m.rows, m.app.userID != "", rightWidth-2, portfolioHeight-2, m.focusedPanel == PanelPortfolio)

	rightCol := lipgloss.JoinVertical(lipgloss.Left, queueView, portfolioView)
	main := lipgloss.JoinHorizontal(lipgloss.Top, libraryView, rightCol)

	statusBar := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, npBar, main, statusBar)
}

func (m Model) renderStatusBar() string {
	status := styles.Dim.Render("q:quit  ?:help  /:search  space:play/pause  n:next  p:prev  f:full  $:invest  tab:panel")

	if m.flash != "" {
		status = styles.Playing.Render(m.flash)
	}
	if m.lastError != nil {
		status = styles.Alert.Render("Error: " + m.lastError.Error())
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := "Murex - Keyboard Shortcuts"
	divider := styles.Repeat("═", len(title))

	help := `
  ` + title + `
  ` + divider + `

  Global
  ──────
  q, Ctrl+C    Quit
  ?            Toggle help
  /            Search
  Tab          Next panel
  Shift+Tab    Previous panel
  r            Refresh
  t            Cycle theme
  f            Full player
  m            Mini player

  Playback
  ────────
  Space        Play/Pause
  n            Next track
  p            Previous track
  x            Stop
  +/=          Volume up
  -            Volume down
  S            Toggle shuffle
  R            Cycle repeat

  Library Panel
  ─────────────
  j/↓ k/↑      Move selection
  Enter        Play from here
  a            Add to queue
  l            Like
  $            Invest

  Queue Panel
  ───────────
  j/↓ k/↑      Move selection
  Enter        Jump to track
  c            Clear queue

  Press ? or Esc to close
`

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.BorderStyle.Render(help))
}

func (m Model) renderSearch() string {
	var b strings.Builder

	b.WriteString(styles.Highlight.Render("Search"))
	b.WriteString("\n\n")

	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	if m.searchErr != nil {
		b.WriteString(styles.Alert.Render("Error: " + m.searchErr.Error()))
	} else if m.searching {
		b.WriteString(styles.Muted.Render("Searching..."))
	} else if len(m.searchResults) == 0 && m.searchInput.Value() != "" && m.lastQuery != "" {
		b.WriteString(styles.Muted.Render("No results found"))
	} else {
		maxResults := 10
		for i, track := range m.searchResults {
			if i >= maxResults {
				b.WriteString(styles.Dim.Render("  ...and more"))
				break
			}

			line := track.Title + " " + styles.Muted.Render(track.Artist)
			if track.Album != "" {
				line += " " + styles.Dim.Render("("+track.Album+")")
			}

			if i == m.searchCursor {
				b.WriteString(styles.Highlight.Render("> ") + line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Dim.Render("↑/↓:nav  Enter:play  Ctrl+q:queue  Esc:close"))

	content := lipgloss.NewStyle().
		Width(60).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.FocusedBorder.Render(content))
}

func (m Model) renderInvest() string {
	var b strings.Builder

	b.WriteString(styles.Highlight.Render("Invest in " + m.investTrack.Title))
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(m.investTrack.Artist))
	b.WriteString("\n\n")

	b.WriteString(styles.Muted.Render("Amount in dollars:"))
	b.WriteString("\n")
	b.WriteString(m.investInput.View())
	b.WriteString("\n\n")

	b.WriteString(styles.Dim.Render("Enter:invest  Esc:cancel"))

	content := lipgloss.NewStyle().
		Width(44).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.FocusedBorder.Render(content))
}

// Run starts the TUI application and blocks until it exits.
func Run(opts Options) error {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer app.sub.Cancel()

	if app.themes != nil {
		styles.Apply(app.themes.Active())
	}

	model := NewModel(app)
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, err = p.Run()
	return err
}
