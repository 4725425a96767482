// Package screens provides individual TUI screens for the application.
package screens

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dtg01100/systemctl-manager/internal/actions"
	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/favorites"
	"github.com/dtg01100/systemctl-manager/internal/inventory"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/models"
	"github.com/dtg01100/systemctl-manager/internal/search"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
	"github.com/dtg01100/systemctl-manager/internal/tui/components"
	"github.com/dtg01100/systemctl-manager/internal/view"
)

// Screen modes for the services screen
const (
	ServicesModeList    = "list"
	ServicesModeSearch  = "search"
	ServicesModeDetails = "details"
)

// permissionHint is appended to refused actions. sudo runs with -n here,
// so a password prompt cannot be answered.
const permissionHint = "permission denied (run as root or set settings.scope to user)"

// ServicesKeyMap holds the services screen bindings.
type ServicesKeyMap struct {
	Up            key.Binding
	Down          key.Binding
	Search        key.Binding
	Favorite      key.Binding
	FavoriteUp    key.Binding
	FavoriteDown  key.Binding
	Start         key.Binding
	Stop          key.Binding
	Restart       key.Binding
	ToggleEnabled key.Binding
	Reload        key.Binding
	Logs          key.Binding
	Open          key.Binding
	New           key.Binding
	Details       key.Binding
	Refresh       key.Binding
	Back          key.Binding
}

// DefaultServicesKeyMap returns the standard bindings.
func DefaultServicesKeyMap() ServicesKeyMap {
	return ServicesKeyMap{
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Favorite:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "toggle favorite")),
		FavoriteUp:    key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move favorite up")),
		FavoriteDown:  key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move favorite down")),
		Start:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Stop:          key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Restart:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		ToggleEnabled: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "enable/disable")),
		Reload:        key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "daemon-reload")),
		Logs:          key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "follow logs")),
		Open:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "edit unit file")),
		New:           key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new service")),
		Details:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Refresh:       key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "refresh")),
		Back:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// FullHelp lists every binding, for the help screen.
func (k ServicesKeyMap) FullHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Search, k.Favorite, k.FavoriteUp, k.FavoriteDown,
		k.Start, k.Stop, k.Restart, k.ToggleEnabled, k.Reload,
		k.Logs, k.Open, k.New, k.Details, k.Refresh, k.Back,
	}
}

// ShortHelp lists the bindings shown in the help bar.
func (k ServicesKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Favorite, k.Start, k.Stop, k.Restart, k.ToggleEnabled, k.Logs, k.Open, k.New}
}

// Messages

// ServicesLoadedMsg carries the result of one inventory fetch. Seq
// identifies the refresh that produced it.
type ServicesLoadedMsg struct {
	Seq      int
	Services []models.ServiceRecord
	Err      error
}

// RefreshServicesMsg triggers a refresh of the services list.
type RefreshServicesMsg struct{}

// ActionDoneMsg is sent after a dispatched action completes.
type ActionDoneMsg struct {
	Notification actions.Notification
}

// DetailsLoadedMsg carries the detailed status of a service.
type DetailsLoadedMsg struct {
	Name   string
	Status *models.ServiceStatus
	Err    error
}

// ExecFinishedMsg is sent when an external program handed the terminal back.
type ExecFinishedMsg struct {
	Program string
	Err     error
}

// NewServiceRequestedMsg asks the app to open the new-service form.
type NewServiceRequestedMsg struct{}

type editorReadyMsg struct {
	cmd          *exec.Cmd
	notification actions.Notification
}

// ServicesScreen lists services and runs actions on them.
type ServicesScreen struct {
	fetcher    *inventory.Fetcher
	dispatcher *actions.Dispatcher
	favorites  *favorites.Store
	manager    systemd.ServiceManager
	log        logger.Logger

	services   []models.ServiceRecord
	rows       []view.Row
	filter     search.Filter
	searchText string
	search     textinput.Model
	keys       ServicesKeyMap

	mode   string
	cursor int
	width  int
	height int

	seq     int
	loading bool
	status  actions.Notification

	details    *models.ServiceStatus
	detailsErr error
}

// NewServicesScreen creates the services screen.
func NewServicesScreen(fetcher *inventory.Fetcher, dispatcher *actions.Dispatcher, favs *favorites.Store, manager systemd.ServiceManager, log logger.Logger) *ServicesScreen {
	if log == nil {
		log = logger.NewNop()
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "name or description"
	ti.CharLimit = 128

	return &ServicesScreen{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		favorites:  favs,
		manager:    manager,
		log:        log,
		search:     ti,
		keys:       DefaultServicesKeyMap(),
		mode:       ServicesModeList,
	}
}

// Init loads the service list.
func (s *ServicesScreen) Init() tea.Cmd {
	return s.Refresh()
}

// Refresh starts a new inventory fetch. Results of earlier fetches that
// arrive afterwards are discarded.
func (s *ServicesScreen) Refresh() tea.Cmd {
	s.seq++
	seq := s.seq
	s.loading = true
	return func() tea.Msg {
		services, err := s.fetcher.Fetch(context.Background())
		return ServicesLoadedMsg{Seq: seq, Services: services, Err: err}
	}
}

// SetSize sets the screen dimensions.
func (s *ServicesScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.search.Width = width - 6
}

// Mode returns the current mode.
func (s *ServicesScreen) Mode() string {
	return s.mode
}

// Capturing reports whether key presses go to the search input.
func (s *ServicesScreen) Capturing() bool {
	return s.mode == ServicesModeSearch
}

// Keys returns the screen bindings.
func (s *ServicesScreen) Keys() ServicesKeyMap {
	return s.keys
}

// Rows returns the composed rows currently displayed.
func (s *ServicesScreen) Rows() []view.Row {
	return s.rows
}

// Cursor returns the index of the selected row.
func (s *ServicesScreen) Cursor() int {
	return s.cursor
}

// Status returns the last notification shown in the status line.
func (s *ServicesScreen) Status() actions.Notification {
	return s.status
}

// SetStatus replaces the status line notification.
func (s *ServicesScreen) SetStatus(n actions.Notification) {
	s.status = n
}

// Selected returns the service row under the cursor.
func (s *ServicesScreen) Selected() (view.ServiceRow, bool) {
	if s.cursor < 0 || s.cursor >= len(s.rows) {
		return view.ServiceRow{}, false
	}
	row, ok := s.rows[s.cursor].(view.ServiceRow)
	return row, ok
}

// Update handles screen updates.
func (s *ServicesScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ServicesLoadedMsg:
		if msg.Seq != s.seq {
			s.log.Debug("dropping stale service list", logger.Int("seq", msg.Seq), logger.Int("current", s.seq))
			return s, nil
		}
		s.loading = false
		if msg.Err != nil {
			s.log.Error("failed to get services list", logger.Error(msg.Err))
			s.status = actions.Notification{Level: actions.LevelError, Text: "Failed to get services list", Err: msg.Err}
		}
		selected := s.selectedName()
		s.services = msg.Services
		s.compose()
		s.selectName(selected)
		return s, nil

	case RefreshServicesMsg:
		return s, s.Refresh()

	case ActionDoneMsg:
		s.status = msg.Notification
		if errors.Is(s.status.Err, apperrors.ErrPermissionDenied) {
			s.status.Text += ": " + permissionHint
		}
		return s, s.Refresh()

	case DetailsLoadedMsg:
		if row, ok := s.Selected(); ok && row.Service.Name == msg.Name {
			s.details = msg.Status
			s.detailsErr = msg.Err
		}
		return s, nil

	case editorReadyMsg:
		s.status = msg.notification
		if msg.cmd == nil {
			return s, nil
		}
		return s, s.exec("editor", msg.cmd)

	case ExecFinishedMsg:
		if msg.Err != nil {
			s.log.Warn("external program failed", logger.String("program", msg.Program), logger.Error(msg.Err))
			s.status = actions.Notification{
				Level: actions.LevelError,
				Text:  fmt.Sprintf("%s exited with an error: %v", msg.Program, msg.Err),
				Err:   msg.Err,
			}
		}
		return s, s.Refresh()

	case tea.KeyMsg:
		switch s.mode {
		case ServicesModeSearch:
			return s, s.handleSearchKey(msg)
		case ServicesModeDetails:
			return s, s.handleDetailsKey(msg)
		default:
			return s, s.handleListKey(msg)
		}
	}

	if s.mode == ServicesModeSearch {
		var cmd tea.Cmd
		s.search, cmd = s.search.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *ServicesScreen) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		selected := s.selectedName()
		s.searchText = s.search.Value()
		s.filter.Set(s.searchText)
		s.mode = ServicesModeList
		s.search.Blur()
		s.compose()
		s.selectName(selected)
		return nil
	case "esc":
		s.mode = ServicesModeList
		s.search.Blur()
		s.search.SetValue(s.searchText)
		return nil
	}

	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	return cmd
}

func (s *ServicesScreen) handleDetailsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "enter", "q":
		s.mode = ServicesModeList
		s.details = nil
		s.detailsErr = nil
		return nil
	}
	if key.Matches(msg, s.keys.Up, s.keys.Down, s.keys.Search) {
		return nil
	}
	return s.handleListKey(msg)
}

func (s *ServicesScreen) handleListKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.Up):
		s.moveCursor(-1)
		return nil
	case key.Matches(msg, s.keys.Down):
		s.moveCursor(1)
		return nil
	case key.Matches(msg, s.keys.Search):
		s.mode = ServicesModeSearch
		s.search.SetValue(s.searchText)
		s.search.CursorEnd()
		return s.search.Focus()
	case key.Matches(msg, s.keys.Refresh):
		return s.Refresh()
	case key.Matches(msg, s.keys.Reload):
		return s.dispatch(func(ctx context.Context) actions.Notification {
			return s.dispatcher.ReloadDaemon(ctx)
		})
	case key.Matches(msg, s.keys.New):
		return func() tea.Msg { return NewServiceRequestedMsg{} }
	}

	row, ok := s.Selected()
	if !ok {
		return nil
	}
	name := row.Service.Name

	switch {
	case key.Matches(msg, s.keys.Favorite):
		s.toggleFavorite(name)
	case key.Matches(msg, s.keys.FavoriteUp):
		s.moveFavorite(name, s.favorites.MoveUp)
	case key.Matches(msg, s.keys.FavoriteDown):
		s.moveFavorite(name, s.favorites.MoveDown)
	case key.Matches(msg, s.keys.Start):
		return s.dispatch(func(ctx context.Context) actions.Notification { return s.dispatcher.Start(ctx, name) })
	case key.Matches(msg, s.keys.Stop):
		return s.dispatch(func(ctx context.Context) actions.Notification { return s.dispatcher.Stop(ctx, name) })
	case key.Matches(msg, s.keys.Restart):
		return s.dispatch(func(ctx context.Context) actions.Notification { return s.dispatcher.Restart(ctx, name) })
	case key.Matches(msg, s.keys.ToggleEnabled):
		return s.dispatch(func(ctx context.Context) actions.Notification { return s.dispatcher.ToggleEnabled(ctx, name) })
	case key.Matches(msg, s.keys.Logs):
		return s.followLogs(name)
	case key.Matches(msg, s.keys.Open):
		return func() tea.Msg {
			c, n := s.dispatcher.OpenConfig(context.Background(), name)
			return editorReadyMsg{cmd: c, notification: n}
		}
	case key.Matches(msg, s.keys.Details):
		s.mode = ServicesModeDetails
		s.details = nil
		s.detailsErr = nil
		return func() tea.Msg {
			status, err := s.manager.GetDetailedStatus(context.Background(), name)
			return DetailsLoadedMsg{Name: name, Status: status, Err: err}
		}
	}
	return nil
}

// DraftNewService writes the default unit for name and opens it in the editor.
func (s *ServicesScreen) DraftNewService(name string) tea.Cmd {
	c, n := s.dispatcher.DraftNewService(name)
	s.status = n
	if c == nil {
		return nil
	}
	return s.exec("editor", c)
}

func (s *ServicesScreen) dispatch(fn func(ctx context.Context) actions.Notification) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Notification: fn(context.Background())}
	}
}

func (s *ServicesScreen) exec(program string, c *exec.Cmd) tea.Cmd {
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return ExecFinishedMsg{Program: program, Err: err}
	})
}

// followLogs hands the terminal to journalctl until the user interrupts it.
func (s *ServicesScreen) followLogs(name string) tea.Cmd {
	return tea.ExecProcess(s.dispatcher.FollowLogs(name), func(err error) tea.Msg {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			err = nil
		}
		return ExecFinishedMsg{Program: "journalctl", Err: err}
	})
}

func (s *ServicesScreen) toggleFavorite(name string) {
	added, err := s.favorites.Toggle(name)
	if err != nil {
		s.status = actions.Notification{Level: actions.LevelError, Text: "Failed to save favorites", Err: err}
	} else if added {
		s.status = actions.Notification{Level: actions.LevelInfo, Text: fmt.Sprintf("Added %s to favorites", name)}
	} else {
		s.status = actions.Notification{Level: actions.LevelInfo, Text: fmt.Sprintf("Removed %s from favorites", name)}
	}
	s.compose()
	s.selectName(name)
}

func (s *ServicesScreen) moveFavorite(name string, move func(string) error) {
	if !s.favorites.IsFavorite(name) {
		return
	}
	if err := move(name); err != nil {
		s.status = actions.Notification{Level: actions.LevelError, Text: "Failed to save favorites", Err: err}
	}
	s.compose()
	s.selectName(name)
}

func (s *ServicesScreen) compose() {
	s.rows = view.Compose(s.services, s.favorites.Ordered(), s.filter)
}

func (s *ServicesScreen) selectedName() string {
	if row, ok := s.Selected(); ok {
		return row.Service.Name
	}
	return ""
}

// selectName puts the cursor on name, or on the nearest selectable row if
// name is no longer listed.
func (s *ServicesScreen) selectName(name string) {
	if name != "" {
		for i, r := range s.rows {
			if row, ok := r.(view.ServiceRow); ok && row.Service.Name == name {
				s.cursor = i
				return
			}
		}
	}
	s.clampCursor()
}

func (s *ServicesScreen) clampCursor() {
	if s.cursor >= len(s.rows) {
		s.cursor = len(s.rows) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	if _, ok := s.Selected(); ok || len(s.rows) == 0 {
		return
	}
	// On the separator: prefer the row below it.
	if s.cursor+1 < len(s.rows) {
		s.cursor++
	} else if s.cursor > 0 {
		s.cursor--
	}
}

// moveCursor steps over separator rows.
func (s *ServicesScreen) moveCursor(delta int) {
	for next := s.cursor + delta; next >= 0 && next < len(s.rows); next += delta {
		if _, ok := s.rows[next].(view.ServiceRow); ok {
			s.cursor = next
			return
		}
	}
}

// View renders the screen.
func (s *ServicesScreen) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Services (%d)", len(view.Services(s.rows)))
	if s.filter.Active() {
		title = fmt.Sprintf("Services (%d) [filter: %q]", len(view.Services(s.rows)), s.searchText)
	}
	b.WriteString(components.Styles.Title.Render(title))
	b.WriteString("\n\n")

	if s.mode == ServicesModeSearch {
		b.WriteString(components.Styles.Search.Render(s.search.View()))
		b.WriteString("\n\n")
	}

	if s.loading && len(s.rows) == 0 {
		b.WriteString(components.RenderInfo("Loading services..."))
		b.WriteString("\n")
	} else if len(s.rows) == 0 {
		msg := components.Styles.Subtitle.Render("No services found.")
		if s.filter.Active() {
			msg = components.RenderWarning("No services match the current filter.")
		}
		b.WriteString(lipgloss.NewStyle().
			Width(s.width).
			Align(lipgloss.Center).
			Render(msg))
		b.WriteString("\n")
	} else if s.mode == ServicesModeDetails {
		b.WriteString(s.renderDetails())
	} else {
		b.WriteString(s.renderRows())
	}

	if line := components.RenderNotification(s.status); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(components.HelpBar(s.width, BindingHelp(s.keys.ShortHelp())))

	return b.String()
}

// listHeight is the number of rows that fit between the title and the help bar.
func (s *ServicesScreen) listHeight() int {
	h := s.height - 10
	if s.mode == ServicesModeSearch {
		h -= 2
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (s *ServicesScreen) renderRows() string {
	var b strings.Builder

	nameWidth := 36
	stateWidth := 30
	descWidth := s.width - nameWidth - stateWidth - 8
	if descWidth < 10 {
		descWidth = 10
	}

	height := s.listHeight()
	start := 0
	if s.cursor >= height {
		start = s.cursor - height + 1
	}
	end := start + height
	if end > len(s.rows) {
		end = len(s.rows)
	}

	for i := start; i < end; i++ {
		switch row := s.rows[i].(type) {
		case view.SeparatorRow:
			b.WriteString("    " + components.Styles.Separator.Render(row.Label))
		case view.ServiceRow:
			cursor := "  "
			style := components.Styles.Normal
			if i == s.cursor {
				cursor = components.Styles.Selected.Render("▸ ")
				style = components.Styles.Selected
			}
			line := fmt.Sprintf("%-*s %-*s %s",
				nameWidth, components.Truncate(row.Label, nameWidth),
				stateWidth, row.Description,
				components.Truncate(row.Service.Description, descWidth))
			b.WriteString(cursor + components.RenderIcon(row.Icon) + " " + style.Render(line))
		}
		b.WriteString("\n")
	}

	if len(s.rows) > height {
		b.WriteString(components.Styles.HelpText.Render(fmt.Sprintf("[%d/%d]", s.cursor+1, len(s.rows))))
		b.WriteString("\n")
	}

	return b.String()
}

func (s *ServicesScreen) renderDetails() string {
	row, ok := s.Selected()
	if !ok {
		return components.Styles.Error.Render("No service selected") + "\n"
	}

	var b strings.Builder
	b.WriteString(components.RenderIcon(row.Icon) + " " + components.Styles.Selected.Render(row.Service.Name))
	b.WriteString("\n\n")

	switch {
	case s.detailsErr != nil:
		b.WriteString(components.RenderError("Failed to load status") + "\n\n")
		b.WriteString(components.Styles.HelpText.Render(apperrors.FormatErrorForTUI(s.detailsErr)))
	case s.details == nil:
		b.WriteString(components.RenderInfo("Loading status..."))
	default:
		b.WriteString(components.Styles.Border.Width(s.width - 8).Render(formatDetails(s.details)))
	}
	b.WriteString("\n")
	return b.String()
}

func formatDetails(st *models.ServiceStatus) string {
	var b strings.Builder
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-14s %s\n", label+":", value)
		}
	}

	field("Description", st.Description)
	field("Unit File", st.UnitFile)
	field("Load State", st.LoadState)
	field("Active State", fmt.Sprintf("%s (%s)", st.ActiveState, st.SubState))
	field("Enabled", fmt.Sprintf("%t", st.Enabled))
	if st.MainPID > 0 {
		field("Main PID", fmt.Sprintf("%d", st.MainPID))
	}
	if st.ExitCode > 0 {
		field("Exit Code", fmt.Sprintf("%d", st.ExitCode))
	}
	if !st.ActivatedAt.IsZero() {
		field("Activated", st.ActivatedAt.Format("2006-01-02 15:04:05"))
	}
	if !st.InactiveAt.IsZero() {
		field("Inactive", st.InactiveAt.Format("2006-01-02 15:04:05"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// BindingHelp converts key bindings to help items.
func BindingHelp(bindings []key.Binding) []components.HelpItem {
	items := make([]components.HelpItem, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		items = append(items, components.HelpItem{Key: h.Key, Desc: h.Desc})
	}
	return items
}
