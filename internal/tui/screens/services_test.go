package screens

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dtg01100/systemctl-manager/internal/actions"
	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/favorites"
	"github.com/dtg01100/systemctl-manager/internal/inventory"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/models"
	"github.com/dtg01100/systemctl-manager/internal/state"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
	"github.com/dtg01100/systemctl-manager/internal/view"
)

// failingPersister loads nothing and refuses every save.
type failingPersister struct{}

func (failingPersister) LoadFavorites() ([]string, []string, error) { return nil, nil, nil }
func (failingPersister) SaveFavorites([]string, []string) error    { return errors.New("read-only file system") }

func newTestMock() *systemd.MockManager {
	m := systemd.NewMockManager()
	m.Units = []systemd.UnitEntry{
		{Name: "cron", Description: "Regular background program processing daemon"},
		{Name: "nginx", Description: "A high performance web server"},
		{Name: "ssh", Description: "OpenBSD Secure Shell server"},
	}
	m.Enabled = []string{"cron", "ssh"}
	m.States["cron"] = models.StateActive
	m.States["nginx"] = models.StateFailed
	return m
}

func newTestFavorites(t *testing.T) *favorites.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.yaml")
	st, err := state.Open(path)
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	favs := favorites.New(st, path, nil)
	if err := favs.Load(); err != nil {
		t.Fatalf("favorites.Load: %v", err)
	}
	return favs
}

func newTestScreenWith(t *testing.T, m *systemd.MockManager, favs *favorites.Store) *ServicesScreen {
	t.Helper()
	s := NewServicesScreen(
		inventory.NewFetcher(m, nil, 2),
		actions.NewDispatcher(m, logger.NewNop(), "true"),
		favs,
		m,
		nil,
	)
	s.SetSize(120, 40)
	update(t, s, s.Init()())
	return s
}

func newTestScreen(t *testing.T) (*ServicesScreen, *systemd.MockManager, *favorites.Store) {
	t.Helper()
	m := newTestMock()
	favs := newTestFavorites(t)
	return newTestScreenWith(t, m, favs), m, favs
}

func update(t *testing.T, s *ServicesScreen, msg tea.Msg) tea.Cmd {
	t.Helper()
	model, cmd := s.Update(msg)
	if model != s {
		t.Fatalf("Update returned a different model")
	}
	return cmd
}

func press(t *testing.T, s *ServicesScreen, k string) tea.Cmd {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return update(t, s, msg)
}

func selectedName(t *testing.T, s *ServicesScreen) string {
	t.Helper()
	row, ok := s.Selected()
	if !ok {
		t.Fatalf("no service selected (cursor %d of %d rows)", s.Cursor(), len(s.Rows()))
	}
	return row.Service.Name
}

func rowLabels(s *ServicesScreen) []string {
	var labels []string
	for _, r := range s.Rows() {
		switch r := r.(type) {
		case view.ServiceRow:
			labels = append(labels, r.Label)
		case view.SeparatorRow:
			labels = append(labels, "--")
		}
	}
	return labels
}

func TestServicesScreen_Load(t *testing.T) {
	s, _, _ := newTestScreen(t)

	if got := strings.Join(rowLabels(s), ","); got != "cron,nginx,ssh" {
		t.Fatalf("rows = %s", got)
	}
	if selectedName(t, s) != "cron" {
		t.Errorf("expected cron selected")
	}
	if s.Status().Text != "" {
		t.Errorf("unexpected status %q", s.Status().Text)
	}
}

func TestServicesScreen_StaleRefreshDropped(t *testing.T) {
	s, m, _ := newTestScreen(t)

	older := s.Refresh()
	newer := s.Refresh()

	update(t, s, newer())

	m.Units = m.Units[:1]
	update(t, s, older())

	if len(s.Rows()) != 3 {
		t.Errorf("stale refresh replaced the list: %v", rowLabels(s))
	}
}

func TestServicesScreen_LoadError(t *testing.T) {
	m := newTestMock()
	m.ListUnitsErr = errors.New("Failed to connect to bus")
	s := newTestScreenWith(t, m, newTestFavorites(t))

	if len(s.Rows()) != 0 {
		t.Errorf("expected no rows, got %v", rowLabels(s))
	}
	if !s.Status().IsError() || s.Status().Text != "Failed to get services list" {
		t.Errorf("unexpected status %+v", s.Status())
	}
	if !strings.Contains(s.View(), "No services found.") {
		t.Error("expected empty state in view")
	}
}

func TestServicesScreen_ToggleFavoriteAndSkipSeparator(t *testing.T) {
	s, _, favs := newTestScreen(t)

	press(t, s, "down")
	press(t, s, "f")

	if !favs.IsFavorite("nginx") {
		t.Fatal("nginx should be a favorite")
	}
	want := view.FavoriteGlyph + " nginx,--,cron,ssh"
	if got := strings.Join(rowLabels(s), ","); got != want {
		t.Fatalf("rows = %s, want %s", got, want)
	}
	if s.Cursor() != 0 || selectedName(t, s) != "nginx" {
		t.Errorf("cursor should follow nginx, at %d", s.Cursor())
	}

	press(t, s, "down")
	if s.Cursor() != 2 || selectedName(t, s) != "cron" {
		t.Errorf("down should skip the separator, cursor at %d", s.Cursor())
	}
	press(t, s, "up")
	if s.Cursor() != 0 {
		t.Errorf("up should skip the separator, cursor at %d", s.Cursor())
	}

	press(t, s, "f")
	if favs.IsFavorite("nginx") {
		t.Error("second toggle should remove nginx")
	}
	if got := strings.Join(rowLabels(s), ","); got != "cron,nginx,ssh" {
		t.Errorf("rows = %s", got)
	}
	if selectedName(t, s) != "nginx" {
		t.Errorf("cursor should stay on nginx")
	}
}

func TestServicesScreen_MoveFavorite(t *testing.T) {
	s, _, favs := newTestScreen(t)

	press(t, s, "f") // cron
	press(t, s, "down")
	press(t, s, "f") // nginx
	if got := strings.Join(favs.Ordered(), ","); got != "cron,nginx" {
		t.Fatalf("order = %s", got)
	}

	press(t, s, "K")
	if got := strings.Join(favs.Ordered(), ","); got != "nginx,cron" {
		t.Errorf("order after K = %s", got)
	}
	if selectedName(t, s) != "nginx" || s.Cursor() != 0 {
		t.Errorf("cursor should follow nginx to the top, at %d", s.Cursor())
	}

	press(t, s, "J")
	if got := strings.Join(favs.Ordered(), ","); got != "cron,nginx" {
		t.Errorf("order after J = %s", got)
	}

	// Moving a non-favorite does nothing.
	press(t, s, "down")
	press(t, s, "down")
	if selectedName(t, s) != "ssh" {
		t.Fatalf("expected ssh selected")
	}
	press(t, s, "K")
	if got := strings.Join(favs.Ordered(), ","); got != "cron,nginx" {
		t.Errorf("order changed by non-favorite: %s", got)
	}
}

func TestServicesScreen_FavoritePersistFailure(t *testing.T) {
	favs := favorites.New(failingPersister{}, "state.yaml", nil)
	s := newTestScreenWith(t, newTestMock(), favs)

	press(t, s, "f")

	if !s.Status().IsError() || s.Status().Text != "Failed to save favorites" {
		t.Errorf("unexpected status %+v", s.Status())
	}
	if !favs.IsFavorite("cron") {
		t.Error("in-memory favorite should be kept after a failed save")
	}
	if rowLabels(s)[0] != view.FavoriteGlyph+" cron" {
		t.Errorf("rows = %v", rowLabels(s))
	}
}

func TestServicesScreen_Search(t *testing.T) {
	s, _, _ := newTestScreen(t)

	press(t, s, "/")
	if !s.Capturing() {
		t.Fatal("expected search mode")
	}
	press(t, s, "secure")
	press(t, s, "enter")

	if s.Capturing() {
		t.Error("enter should leave search mode")
	}
	if got := strings.Join(rowLabels(s), ","); got != "ssh" {
		t.Fatalf("rows = %s, want ssh", got)
	}
	if !strings.Contains(s.View(), `[filter: "secure"]`) {
		t.Error("view should show the active filter")
	}

	// Esc discards the edit.
	press(t, s, "/")
	press(t, s, "x")
	press(t, s, "esc")
	if got := strings.Join(rowLabels(s), ","); got != "ssh" {
		t.Errorf("esc should keep the previous filter, rows = %s", got)
	}

	// An empty search clears the filter.
	press(t, s, "/")
	for range "secure" {
		press(t, s, "backspace")
	}
	press(t, s, "enter")
	if got := strings.Join(rowLabels(s), ","); got != "cron,nginx,ssh" {
		t.Errorf("rows = %s", got)
	}
}

func TestServicesScreen_SearchNoMatch(t *testing.T) {
	s, _, _ := newTestScreen(t)

	press(t, s, "/")
	press(t, s, "postgres")
	press(t, s, "enter")

	if len(s.Rows()) != 0 {
		t.Errorf("expected no rows, got %v", rowLabels(s))
	}
	if !strings.Contains(s.View(), "No services match the current filter.") {
		t.Error("expected filter empty state")
	}
	if cmd := press(t, s, "s"); cmd != nil {
		t.Error("actions need a selected service")
	}
}

func TestServicesScreen_Actions(t *testing.T) {
	tests := []struct {
		key  string
		call string
		text string
	}{
		{"s", "start cron", "Service cron started"},
		{"x", "stop cron", "Service cron stopped"},
		{"r", "restart cron", "Service cron restarted"},
		{"e", "disable cron", "Service cron disabled"},
		{"D", "daemon-reload", "Systemd daemon reloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := newTestMock()
			m.EnabledByName["cron"] = true
			s := newTestScreenWith(t, m, newTestFavorites(t))

			cmd := press(t, s, tt.key)
			if cmd == nil {
				t.Fatal("expected a command")
			}
			done, ok := cmd().(ActionDoneMsg)
			if !ok {
				t.Fatalf("expected ActionDoneMsg")
			}
			if refresh := update(t, s, done); refresh == nil {
				t.Error("an action should trigger a refresh")
			}
			if s.Status().Text != tt.text || s.Status().IsError() {
				t.Errorf("status = %+v, want %q", s.Status(), tt.text)
			}

			found := false
			for _, c := range m.CallLog() {
				if c == tt.call {
					found = true
				}
			}
			if !found {
				t.Errorf("calls %v missing %q", m.CallLog(), tt.call)
			}
		})
	}
}

func TestServicesScreen_ActionFailure(t *testing.T) {
	m := newTestMock()
	m.ActionErr = errors.New("Job for cron.service failed")
	s := newTestScreenWith(t, m, newTestFavorites(t))

	update(t, s, press(t, s, "x")())

	if !s.Status().IsError() || s.Status().Text != "Failed to stop cron" {
		t.Errorf("unexpected status %+v", s.Status())
	}
}

func TestServicesScreen_ActionPermissionDenied(t *testing.T) {
	m := newTestMock()
	m.ActionErr = apperrors.NewPermissionDeniedError("stop", "cron.service", errors.New("exit status 1"))
	s := newTestScreenWith(t, m, newTestFavorites(t))

	update(t, s, press(t, s, "x")())

	st := s.Status()
	if !st.IsError() || !strings.HasPrefix(st.Text, "Failed to stop cron: permission denied") {
		t.Errorf("unexpected status %+v", st)
	}
	if !strings.Contains(st.Text, "settings.scope to user") {
		t.Errorf("status should say how to avoid sudo, got %q", st.Text)
	}
}

func TestServicesScreen_Details(t *testing.T) {
	m := newTestMock()
	m.Details["cron"] = &models.ServiceStatus{
		Name:        "cron",
		UnitFile:    "/lib/systemd/system/cron.service",
		LoadState:   "loaded",
		ActiveState: "active",
		SubState:    "running",
		MainPID:     812,
	}
	s := newTestScreenWith(t, m, newTestFavorites(t))

	cmd := press(t, s, "enter")
	if s.Mode() != ServicesModeDetails {
		t.Fatalf("mode = %s", s.Mode())
	}
	update(t, s, cmd())

	out := s.View()
	for _, want := range []string{"/lib/systemd/system/cron.service", "active (running)", "812"} {
		if !strings.Contains(out, want) {
			t.Errorf("details missing %q", want)
		}
	}

	press(t, s, "esc")
	if s.Mode() != ServicesModeList {
		t.Errorf("esc should return to the list")
	}
}

func TestServicesScreen_FollowLogs(t *testing.T) {
	s, m, _ := newTestScreen(t)

	if cmd := press(t, s, "l"); cmd == nil {
		t.Fatal("expected exec command")
	}
	if calls := m.CallLog(); calls[len(calls)-1] != "follow cron" {
		t.Errorf("calls = %v", calls)
	}
}

func TestServicesScreen_OpenConfig(t *testing.T) {
	m := newTestMock()
	m.Fragments["cron"] = "/lib/systemd/system/cron.service"
	s := newTestScreenWith(t, m, newTestFavorites(t))

	ready := press(t, s, "o")()
	if cmd := update(t, s, ready); cmd == nil {
		t.Error("expected editor exec command")
	}
	if s.Status().Text != "Opened /lib/systemd/system/cron.service" {
		t.Errorf("status = %q", s.Status().Text)
	}
}

func TestServicesScreen_OpenConfigFailure(t *testing.T) {
	m := newTestMock()
	m.FragmentErr = errors.New("no such unit")
	s := newTestScreenWith(t, m, newTestFavorites(t))

	ready := press(t, s, "o")()
	if cmd := update(t, s, ready); cmd != nil {
		t.Error("no editor should start")
	}
	if s.Status().Text != "Failed to open config for cron" {
		t.Errorf("status = %q", s.Status().Text)
	}
}

func TestServicesScreen_NewServiceRequest(t *testing.T) {
	s, _, _ := newTestScreen(t)

	cmd := press(t, s, "n")
	if cmd == nil {
		t.Fatal("expected command")
	}
	if _, ok := cmd().(NewServiceRequestedMsg); !ok {
		t.Error("expected NewServiceRequestedMsg")
	}
}

func TestServicesScreen_DraftNewServiceInvalidName(t *testing.T) {
	s, _, _ := newTestScreen(t)

	if cmd := s.DraftNewService("Bad Name"); cmd != nil {
		t.Error("invalid name should not open an editor")
	}
	if !s.Status().IsError() {
		t.Errorf("expected error status, got %+v", s.Status())
	}
}

func TestServicesScreen_ExecFinishedError(t *testing.T) {
	s, _, _ := newTestScreen(t)

	cmd := update(t, s, ExecFinishedMsg{Program: "editor", Err: errors.New("exec: \"nano\": executable file not found in $PATH")})
	if cmd == nil {
		t.Error("expected refresh after the editor returns")
	}
	if !s.Status().IsError() || !strings.HasPrefix(s.Status().Text, "editor exited with an error") {
		t.Errorf("status = %+v", s.Status())
	}
}

func TestServicesScreen_View(t *testing.T) {
	s, _, _ := newTestScreen(t)
	press(t, s, "down")
	press(t, s, "f")
	s.SetStatus(actions.Notification{Level: actions.LevelInfo, Text: "Service nginx started"})

	out := s.View()
	for _, want := range []string{
		"Services (3)",
		view.FavoriteGlyph + " nginx",
		view.SeparatorLabel,
		"failed (disabled) [Favorite]",
		"active (enabled)",
		"Service nginx started",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBindingHelp(t *testing.T) {
	items := BindingHelp(DefaultServicesKeyMap().FullHelp())
	if len(items) != 17 {
		t.Fatalf("expected 17 help items, got %d", len(items))
	}
	if items[0].Key != "↑/k" || items[0].Desc != "move up" {
		t.Errorf("unexpected first item %+v", items[0])
	}
}
