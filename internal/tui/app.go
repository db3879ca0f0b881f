package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/labbook/internal/applog"
	"github.com/lotas/labbook/internal/config"
	"github.com/lotas/labbook/internal/controller"
	"github.com/lotas/labbook/internal/directory"
	"github.com/lotas/labbook/internal/gateway"
	"github.com/lotas/labbook/internal/history"
	"github.com/lotas/labbook/internal/notebook"
	"github.com/lotas/labbook/internal/storage"
	"github.com/lotas/labbook/internal/types"
)

// --- Messages ---

type directoryTickMsg struct{}
type notebookTickMsg struct{}

type sessionsFetchedMsg struct {
	sessions []types.Session
	err      error
}

type notebookFetchedMsg struct {
	sessions []types.Session
	err      error
}

type renameResultMsg struct {
	id    int64
	title string
	err   error
}

type archiveResultMsg struct {
	change directory.ArchiveChange
	err    error
}

type commandResultMsg struct {
	result *gateway.CommandResult
	err    error
}

type snapshotSavedMsg struct {
	rev     int
	created bool
	err     error
}

type watchEventMsg struct{ event gateway.ChangeEvent }
type watchClosedMsg struct{}

// --- Model ---

type Model struct {
	cfg     config.Config
	gw      *gateway.Client
	store   *storage.Store
	watcher *gateway.Watcher

	dir  *directory.Directory
	sync *notebook.Synchronizer
	ctl  *controller.Controller

	tree SessionTree
	nb   NotebookView

	renameInput textinput.Model
	searchInput textinput.Model
	cmdInput    textinput.Model

	// latest full notebook fetch, kept so selection switches and search
	// recomputes can re-derive buffers without waiting for the next poll
	latest []types.Session

	query    string // committed search term, also the server-side filter
	moving   bool   // `m` pressed, next key picks the target bucket
	status   string
	width    int
	height   int
	loaded   bool
	quitting bool
}

func NewModel(cfg config.Config, gw *gateway.Client, store *storage.Store) Model {
	var favs directory.FavoriteStore
	if store != nil {
		favs = store
	}
	dir := directory.New(favs)

	rename := textinput.New()
	rename.Prompt = ""
	rename.CharLimit = 200

	search := textinput.New()
	search.Prompt = "/"
	search.CharLimit = 200

	cmd := textinput.New()
	cmd.Prompt = ":"
	cmd.CharLimit = 500

	m := Model{
		cfg:         cfg,
		gw:          gw,
		store:       store,
		dir:         dir,
		sync:        notebook.NewSynchronizer(),
		ctl:         controller.New(dir),
		nb:          NewNotebookView(),
		renameInput: rename,
		searchInput: search,
		cmdInput:    cmd,
	}
	m.tree = NewSessionTree(dir)
	if cfg.Server.Live {
		m.watcher = gateway.NewWatcher(gw.BaseURL())
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		fetchSessions(m.gw, m.query),
		fetchNotebook(m.gw),
		directoryTick(m.cfg.Interval()),
		notebookTick(m.cfg.Interval()),
	}
	if m.watcher != nil {
		cmds = append(cmds, runWatcher(m.watcher), listenWatcher(m.watcher))
	}
	return tea.Batch(cmds...)
}

// --- Commands ---

func fetchSessions(gw *gateway.Client, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions, err := gw.ListSessions(ctx, query)
		return sessionsFetchedMsg{sessions: sessions, err: err}
	}
}

func fetchNotebook(gw *gateway.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions, err := gw.FetchNotebook(ctx)
		return notebookFetchedMsg{sessions: sessions, err: err}
	}
}

func renameSession(gw *gateway.Client, id int64, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := gw.RenameSession(ctx, id, title)
		return renameResultMsg{id: id, title: title, err: err}
	}
}

func pushArchive(gw *gateway.Client, ch directory.ArchiveChange) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := gw.SetArchived(ctx, ch.ID, ch.Archived)
		return archiveResultMsg{change: ch, err: err}
	}
}

func submitCommand(gw *gateway.Client, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		res, err := gw.SubmitCommand(ctx, text)
		return commandResultMsg{result: res, err: err}
	}
}

func saveSnapshot(store *storage.Store, sessions []storage.SnapshotSession) tea.Cmd {
	return func() tea.Msg {
		rev, created, _, err := history.Create(store, sessions, "")
		return snapshotSavedMsg{rev: rev, created: created, err: err}
	}
}

func directoryTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return directoryTickMsg{} })
}

func notebookTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return notebookTickMsg{} })
}

func runWatcher(w *gateway.Watcher) tea.Cmd {
	return func() tea.Msg {
		w.Run(context.Background())
		return nil
	}
}

func listenWatcher(w *gateway.Watcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return watchClosedMsg{}
		}
		return watchEventMsg{event: ev}
	}
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := m.width * 40 / 100
		nbWidth := m.width - treeWidth - 4 // borders
		paneHeight := m.height - 4         // top bar + bottom bar
		m.tree.Width = treeWidth
		m.tree.Height = paneHeight
		m.nb.SetSize(nbWidth, paneHeight-1)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// The tick loops are fixed-interval and never wait for a fetch to
	// land: an in-flight poll is not cancelled or coalesced, and the
	// last response to resolve wins for non-dirty state.
	case directoryTickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tea.Batch(fetchSessions(m.gw, m.query), directoryTick(m.cfg.Interval()))

	case notebookTickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tea.Batch(fetchNotebook(m.gw), notebookTick(m.cfg.Interval()))

	case sessionsFetchedMsg:
		// Teardown suppression: results arriving after quit are dropped.
		if m.quitting {
			return m, nil
		}
		if msg.err != nil {
			applog.Error("directory.refresh", msg.err)
			return m, nil
		}
		m.dir.ApplyFetch(msg.sessions)
		m.tree.Clamp()
		m.loaded = true
		return m, nil

	case notebookFetchedMsg:
		if m.quitting {
			return m, nil
		}
		if msg.err != nil {
			applog.Error("notebook.refresh", msg.err)
			return m, nil
		}
		m.latest = msg.sessions
		m.sync.ApplyFetch(msg.sessions)
		m.refreshPane()
		return m, nil

	case renameResultMsg:
		if msg.err != nil {
			// Failed rename discards the draft; the prior title stands.
			applog.Error("rename.push", msg.err, "id", msg.id)
			m.status = "rename failed"
			return m, nil
		}
		m.dir.ApplyTitle(msg.id, msg.title)
		m.status = ""
		return m, nil

	case archiveResultMsg:
		if msg.err != nil {
			applog.Error("archive.push", msg.err, "id", msg.change.ID)
			m.dir.RollbackArchive(msg.change)
			m.tree.Clamp()
			m.status = "archive failed"
		}
		return m, nil

	case commandResultMsg:
		if msg.err != nil {
			applog.Error("command.submit", msg.err)
			m.status = "command failed"
			return m, nil
		}
		m.status = fmt.Sprintf("applied: %s", msg.result.Applied.Type)
		// The command likely changed server state; refresh both stores now.
		return m, tea.Batch(fetchSessions(m.gw, m.query), fetchNotebook(m.gw))

	case snapshotSavedMsg:
		switch {
		case msg.err != nil:
			applog.Error("snapshot.save", msg.err)
			m.status = "snapshot failed"
		case !msg.created:
			m.status = "snapshot unchanged"
		default:
			m.status = fmt.Sprintf("snapshot r%d saved", msg.rev)
		}
		return m, nil

	case watchEventMsg:
		applog.Info("watch.event", "type", msg.event.Type)
		return m, tea.Batch(
			fetchSessions(m.gw, m.query),
			fetchNotebook(m.gw),
			listenWatcher(m.watcher),
		)

	case watchClosedMsg:
		// Push feed gone; polling keeps everything alive.
		applog.Info("watch.closed")
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.ctl.Focus() {
	case controller.FocusRename:
		return m.handleRenameKey(msg)
	case controller.FocusSearch:
		return m.handleSearchKey(msg)
	case controller.FocusCommand:
		return m.handleCommandKey(msg)
	case controller.FocusEditor:
		return m.handleEditorKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moving {
		m.moving = false
		if s := m.tree.CurrentSession(); s != nil {
			switch msg.String() {
			case "f":
				return m.moveTo(s.ID, types.BucketFavorites)
			case "a":
				return m.moveTo(s.ID, types.BucketActive)
			case "x":
				return m.moveTo(s.ID, types.BucketArchived)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()

	case "enter":
		if s := m.tree.CurrentSession(); s != nil {
			m.dir.Select(s.ID)
			m.switchTo(s.ID)
		} else {
			m.tree.Toggle()
		}

	case "e":
		if id := m.dir.Selected(); id != 0 {
			content, _ := m.sync.Rendered(id)
			m.nb.StartEdit(content)
			m.ctl.SetFocus(controller.FocusEditor)
		}

	case "r":
		if s := m.tree.CurrentSession(); s != nil {
			if m.ctl.BeginRename(s.ID) {
				m.renameInput.SetValue(m.ctl.Draft())
				m.renameInput.CursorEnd()
				m.renameInput.Focus()
			}
		}

	case "f":
		if s := m.tree.CurrentSession(); s != nil {
			m.dir.SetFavorite(s.ID, !s.IsFavorite)
			m.tree.Clamp()
		}

	case "x":
		if s := m.tree.CurrentSession(); s != nil {
			return m.moveTo(s.ID, types.BucketArchived)
		}

	case "m":
		if m.tree.CurrentSession() != nil {
			m.moving = true
		}

	case "backspace", "delete":
		if ch, ok := m.ctl.DeleteKey(); ok {
			m.tree.Clamp()
			return m, pushArchive(m.gw, ch)
		}

	case "o":
		m.dir.ToggleReversed()
		m.tree.Clamp()

	case "S":
		if m.store == nil {
			return m, nil
		}
		return m, saveSnapshot(m.store, history.Capture(m.dir, m.sync))

	case "/":
		m.ctl.SetFocus(controller.FocusSearch)
		m.searchInput.SetValue(m.query)
		m.searchInput.CursorEnd()
		m.searchInput.Focus()

	case ":":
		m.ctl.SetFocus(controller.FocusCommand)
		m.cmdInput.SetValue("")
		m.cmdInput.Focus()

	case "ctrl+r":
		if id := m.dir.Selected(); id != 0 {
			m.sync.ForceReload(id, m.blocksFor(id))
			m.refreshPane()
			m.status = "reloaded"
		}

	default:
		cmd := m.nb.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.renameInput.Blur()
		if id, title, ok := m.ctl.CommitRename(); ok {
			return m, renameSession(m.gw, id, title)
		}
		return m, nil
	case "esc":
		m.renameInput.Blur()
		m.ctl.CancelRename()
		return m, nil
	case "tab":
		// Pane switch blurs the field, which commits like Enter.
		m.renameInput.Blur()
		if id, title, ok := m.ctl.SetFocus(controller.FocusList); ok {
			return m, renameSession(m.gw, id, title)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	m.ctl.SetDraft(m.renameInput.Value())
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchInput.Blur()
		m.ctl.SetFocus(controller.FocusList)
		m.query = strings.TrimSpace(m.searchInput.Value())
		m.sync.SetSearchTerm(m.query, m.latest)
		m.refreshPane()
		// Restart the directory cycle immediately with the new filter.
		return m, fetchSessions(m.gw, m.query)
	case "esc":
		m.searchInput.Blur()
		m.ctl.SetFocus(controller.FocusList)
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleCommandKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.cmdInput.Blur()
		m.ctl.SetFocus(controller.FocusList)
		text := strings.TrimSpace(m.cmdInput.Value())
		if text == "" {
			return m, nil
		}
		m.status = "sending..."
		return m, submitCommand(m.gw, text)
	case "esc":
		m.cmdInput.Blur()
		m.ctl.SetFocus(controller.FocusList)
		return m, nil
	}
	var cmd tea.Cmd
	m.cmdInput, cmd = m.cmdInput.Update(msg)
	return m, cmd
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.nb.StopEdit()
		m.ctl.SetFocus(controller.FocusList)
		// The viewport must show the edited buffer, not the pre-edit
		// content it held before the textarea took over.
		m.refreshPane()
		return m, nil
	case "ctrl+r":
		if id := m.dir.Selected(); id != 0 {
			m.sync.ForceReload(id, m.blocksFor(id))
			m.nb.StopEdit()
			m.ctl.SetFocus(controller.FocusList)
			m.refreshPane()
			m.status = "reloaded"
		}
		return m, nil
	}
	cmd := m.nb.Update(msg)
	if id := m.dir.Selected(); id != 0 {
		m.sync.OnEdit(id, m.nb.Value(), m.nb.Editing())
	}
	return m, cmd
}

// --- Helpers ---

func (m *Model) moveTo(id int64, bucket types.Bucket) (tea.Model, tea.Cmd) {
	ch, mutated := m.ctl.DropOn(id, bucket)
	m.tree.Clamp()
	if mutated {
		return *m, pushArchive(m.gw, ch)
	}
	return *m, nil
}

func (m *Model) switchTo(id int64) {
	m.sync.Switch(id, m.blocksFor(id))
	m.refreshPane()
}

func (m *Model) blocksFor(id int64) []types.ContentBlock {
	for i := range m.latest {
		if m.latest[i].ID == id {
			return m.latest[i].Blocks
		}
	}
	return nil
}

// refreshPane pushes the selected session's buffer into the viewport.
// Never called while the textarea owns the pane, so a poll landing
// mid-edit cannot clobber the visible editor.
func (m *Model) refreshPane() {
	if m.nb.Editing() {
		return
	}
	id := m.dir.Selected()
	if id == 0 {
		m.nb.ShowContent("")
		return
	}
	content, _ := m.sync.Rendered(id)
	m.nb.ShowContent(content)
}

// --- View ---

var (
	topBarStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	bottomBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.loaded {
		return fmt.Sprintf("\n  Connecting to %s...\n", m.gw.BaseURL())
	}

	st := m.dir.Stats()
	top := fmt.Sprintf("labbook · %s", m.gw.BaseURL())
	if m.watcher != nil {
		top += " · live"
	}
	top += fmt.Sprintf("  %d sessions · %d active · %d fav · %d archived",
		st.Total, st.Active, st.Favorites, st.Archived)
	if m.query != "" {
		top += fmt.Sprintf(" · filter: %q", m.query)
	}
	topBar := topBarStyle.Render(top)

	treeBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(m.tree.Width).
		Height(m.tree.Height)
	nbBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - m.tree.Width - 4).
		Height(m.tree.Height)

	var treeView string
	if m.ctl.Focus() == controller.FocusRename {
		treeView = m.tree.View(m.dir.Selected(), m.dir.Renaming(), m.renameInput.Value())
	} else {
		treeView = m.tree.View(m.dir.Selected(), 0, "")
	}

	dirty := false
	if id := m.dir.Selected(); id != 0 {
		dirty = m.sync.Dirty(id)
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		treeBorder.Render(treeView),
		nbBorder.Render(m.nb.View(dirty)),
	)

	bottom := m.bottomBar()
	return lipgloss.JoinVertical(lipgloss.Left, topBar, panes, bottom)
}

func (m Model) bottomBar() string {
	switch m.ctl.Focus() {
	case controller.FocusSearch:
		return bottomBarStyle.Render(m.searchInput.View() + "  enter filter · esc cancel")
	case controller.FocusCommand:
		return bottomBarStyle.Render(m.cmdInput.View() + "  enter send · esc cancel")
	case controller.FocusRename:
		return bottomBarStyle.Render("renaming · enter commit · esc cancel")
	case controller.FocusEditor:
		return bottomBarStyle.Render("editing · esc done · ctrl+r discard & reload")
	}
	var b strings.Builder
	if m.moving {
		b.WriteString("move to: f favorites · a active · x archive   ")
	}
	b.WriteString("↑↓/jk nav · enter select · e edit · r rename · f fav · x archive · m move · S snapshot · / search · : command · o order · q quit")
	line := bottomBarStyle.Render(b.String())
	if m.status != "" {
		line += "  " + statusStyle.Render(m.status)
	}
	return line
}
