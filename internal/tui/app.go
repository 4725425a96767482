// Package tui provides the terminal user interface for systemctl-manager.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dtg01100/systemctl-manager/internal/actions"
	"github.com/dtg01100/systemctl-manager/internal/config"
	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/favorites"
	"github.com/dtg01100/systemctl-manager/internal/inventory"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/state"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
	"github.com/dtg01100/systemctl-manager/internal/tui/components"
	"github.com/dtg01100/systemctl-manager/internal/tui/screens"
	"github.com/dtg01100/systemctl-manager/internal/watch"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Screen represents a TUI screen in the application.
type Screen int

const (
	ScreenServices Screen = iota
	ScreenNewService
	ScreenHelp
)

// String returns the string representation of a screen.
func (s Screen) String() string {
	switch s {
	case ScreenServices:
		return "Services"
	case ScreenNewService:
		return "New Service"
	case ScreenHelp:
		return "Help"
	default:
		return "Unknown"
	}
}

// UnitsChangedMsg is sent when the watcher saw unit files change.
type UnitsChangedMsg struct{}

// Deps are the collaborators the interface runs against.
type Deps struct {
	Config    *config.Config
	Logger    logger.Logger
	Manager   systemd.ServiceManager
	Favorites *favorites.Store
	// Watcher is optional.
	Watcher *watch.UnitWatcher
}

// BuildDeps constructs the production collaborators from cfg.
func BuildDeps(ctx context.Context, cfg *config.Config, log logger.Logger) (Deps, error) {
	manager := systemd.NewManager(systemd.Options{
		UserScope:          cfg.IsUserScope(),
		UseSudo:            cfg.Settings.UseSudo,
		NonInteractiveSudo: true,
		Timeout:            cfg.Settings.CommandTimeout,
		Logger:             log,
	})

	path, err := cfg.StateFilePath()
	if err != nil {
		return Deps{}, apperrors.Wrap(err, "failed to resolve state file")
	}
	favs := favorites.New(state.Load(path, log), path, log)
	if err := favs.Load(); err != nil {
		return Deps{}, err
	}

	deps := Deps{Config: cfg, Logger: log, Manager: manager, Favorites: favs}

	if cfg.Watch.Enabled {
		w, err := watch.NewUnitWatcher(cfg.WatchPaths(), cfg.Watch.Debounce, log)
		if err != nil {
			log.Warn("unit file watcher unavailable", logger.Error(err))
			return deps, nil
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			log.Warn("unit file watcher unavailable", logger.Error(err))
			return deps, nil
		}
		log.Info("watching unit directories", logger.Strings("dirs", w.WatchedDirs()))
		deps.Watcher = w
	}

	return deps, nil
}

// App is the main TUI application model.
type App struct {
	currentScreen  Screen
	previousScreen Screen
	width          int
	height         int

	// Help screen scroll state
	helpScrollY    int
	helpContentLen int

	services   *screens.ServicesScreen
	newService *screens.NewServiceForm

	deps Deps
	log  logger.Logger
}

// NewApp creates a new TUI application.
func NewApp(deps Deps) *App {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	concurrency, editor := inventory.DefaultConcurrency, ""
	if deps.Config != nil {
		concurrency = deps.Config.Settings.StatusConcurrency
		editor = deps.Config.Settings.Editor
	}

	fetcher := inventory.NewFetcher(deps.Manager, log, concurrency)
	dispatcher := actions.NewDispatcher(deps.Manager, log, editor)

	return &App{
		currentScreen:  ScreenServices,
		previousScreen: ScreenServices,
		services:       screens.NewServicesScreen(fetcher, dispatcher, deps.Favorites, deps.Manager, log),
		deps:           deps,
		log:            log,
	}
}

// Init initializes the application.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.services.Init(), a.waitForUnitChange())
}

// waitForUnitChange blocks until the watcher reports a batch of changes.
func (a *App) waitForUnitChange() tea.Cmd {
	if a.deps.Watcher == nil {
		return nil
	}
	events := a.deps.Watcher.Events()
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return UnitsChangedMsg{}
	}
}

// Update handles application updates.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if handled, cmd := a.handleGlobalKey(msg); handled {
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.services.SetSize(a.width, a.height)
		if a.newService != nil {
			a.newService.SetSize(a.width, a.height)
		}

	case UnitsChangedMsg:
		a.log.Debug("unit files changed, refreshing")
		return a, tea.Batch(a.services.Refresh(), a.waitForUnitChange())

	case screens.NewServiceRequestedMsg:
		a.newService = screens.NewNewServiceForm()
		a.newService.SetSize(a.width, a.height)
		a.currentScreen = ScreenNewService
		return a, a.newService.Init()

	case screens.NewServiceSubmittedMsg:
		a.newService = nil
		a.currentScreen = ScreenServices
		return a, a.services.DraftNewService(msg.Name)

	case screens.NewServiceCancelMsg:
		a.newService = nil
		a.currentScreen = ScreenServices
		return a, nil
	}

	switch a.currentScreen {
	case ScreenNewService:
		if a.newService != nil {
			_, cmd := a.newService.Update(msg)
			cmds = append(cmds, cmd)
		}
		if _, isKey := msg.(tea.KeyMsg); !isKey {
			_, cmd := a.services.Update(msg)
			cmds = append(cmds, cmd)
		}
	default:
		_, cmd := a.services.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// handleGlobalKey handles help and quit keys unless a form or the search
// input owns the keyboard.
func (a *App) handleGlobalKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if a.currentScreen == ScreenHelp {
		switch msg.String() {
		case "up", "k":
			if a.helpScrollY > 0 {
				a.helpScrollY--
			}
		case "down", "j":
			maxScroll := a.helpContentLen - (a.height - 6)
			if maxScroll > 0 && a.helpScrollY < maxScroll {
				a.helpScrollY++
			}
		case "esc", "q", "?":
			a.currentScreen = a.previousScreen
		}
		return true, nil
	}

	if a.currentScreen != ScreenServices || a.services.Capturing() {
		return false, nil
	}

	switch msg.String() {
	case "q":
		if a.services.Mode() == screens.ServicesModeList {
			return true, tea.Quit
		}
	case "?":
		a.previousScreen = a.currentScreen
		a.currentScreen = ScreenHelp
		a.helpScrollY = 0
		return true, nil
	}
	return false, nil
}

// View renders the application.
func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	headerHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - statusHeight

	var content string
	switch a.currentScreen {
	case ScreenServices:
		content = a.services.View()
	case ScreenNewService:
		if a.newService != nil {
			content = a.newService.View()
		}
	case ScreenHelp:
		content = a.renderHelp()
	}

	contentBox := lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		contentBox,
		a.renderStatusBar(),
	)
}

// renderHeader renders the top header bar.
func (a *App) renderHeader() string {
	title := "Systemctl Manager"
	if a.deps.Config != nil && a.deps.Config.IsUserScope() {
		title += " (user)"
	}
	return components.TitleBar(a.width, title, Version)
}

// renderStatusBar renders the bottom status bar.
func (a *App) renderStatusBar() string {
	var statusText string
	switch a.currentScreen {
	case ScreenHelp:
		statusText = "Press Esc or q to close help"
	case ScreenNewService:
		statusText = "New Service | Esc: Cancel"
	default:
		statusText = fmt.Sprintf("Screen: %s | /: Search | ?: Help | q: Quit", a.currentScreen.String())
	}
	return components.StatusBar(a.width, statusText)
}

// renderHelp renders the help screen.
func (a *App) renderHelp() string {
	var b strings.Builder

	b.WriteString(components.Styles.Title.Render("Help & Keybindings") + "\n\n")

	b.WriteString(components.Styles.Subtitle.Render("Services") + "\n")
	for _, item := range screens.BindingHelp(a.services.Keys().FullHelp()) {
		fmt.Fprintf(&b, "  %s  %s\n",
			components.Styles.MenuKey.Render(fmt.Sprintf("%-6s", item.Key)),
			components.Styles.Normal.Render(item.Desc))
	}

	b.WriteString("\n")
	b.WriteString(components.Styles.Subtitle.Render("Search") + "\n")
	for _, item := range []components.HelpItem{
		{Key: "Enter", Desc: "Apply filter (empty clears it)"},
		{Key: "Esc", Desc: "Cancel"},
	} {
		fmt.Fprintf(&b, "  %s  %s\n",
			components.Styles.MenuKey.Render(fmt.Sprintf("%-6s", item.Key)),
			components.Styles.Normal.Render(item.Desc))
	}

	b.WriteString("\n")
	b.WriteString(components.Styles.Subtitle.Render("Global") + "\n")
	for _, item := range []components.HelpItem{
		{Key: "?", Desc: "Toggle this help screen"},
		{Key: "q", Desc: "Quit"},
		{Key: "Ctrl+C", Desc: "Force quit"},
	} {
		fmt.Fprintf(&b, "  %s  %s\n",
			components.Styles.MenuKey.Render(fmt.Sprintf("%-6s", item.Key)),
			components.Styles.Normal.Render(item.Desc))
	}

	lines := strings.Split(b.String(), "\n")
	a.helpContentLen = len(lines)

	availableHeight := a.height - 6
	if availableHeight < 1 {
		availableHeight = 1
	}

	startLine := a.helpScrollY
	if startLine < 0 {
		startLine = 0
	}
	if startLine > len(lines) {
		startLine = len(lines)
	}
	endLine := startLine + availableHeight
	if endLine > len(lines) {
		endLine = len(lines)
	}

	visibleContent := strings.Join(lines[startLine:endLine], "\n")

	maxScroll := len(lines) - availableHeight
	if maxScroll > 0 {
		scrollInfo := fmt.Sprintf("\n\n[%d/%d] ↑/↓ to scroll", startLine+1, maxScroll+1)
		visibleContent += components.Styles.HelpText.Render(scrollInfo)
	}

	return components.Styles.Border.
		Width(a.width - 4).
		Render(visibleContent)
}

// Run starts the TUI application.
func Run(deps Deps) error {
	p := tea.NewProgram(
		NewApp(deps),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
