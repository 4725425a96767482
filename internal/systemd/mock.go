package systemd

import (
	"context"
	"os/exec"
	"sync"

	"github.com/dtg01100/systemctl-manager/internal/models"
)

// MockManager is an in-memory ServiceManager for tests.
// It is safe for concurrent use.
type MockManager struct {
	mu sync.Mutex

	Units         []UnitEntry
	Enabled       []string
	States        map[string]models.ServiceState
	Details       map[string]*models.ServiceStatus
	Fragments     map[string]string
	Logs          map[string]string
	EnabledByName map[string]bool

	ListUnitsErr   error
	ListEnabledErr error
	StateErrs      map[string]error
	IsEnabledErr   error
	ActionErr      error
	ReloadErr      error
	FragmentErr    error
	LogsErr        error
	DetailsErr     error

	// Calls records every invocation as "op" or "op name".
	Calls []string
}

// NewMockManager returns an empty MockManager.
func NewMockManager() *MockManager {
	return &MockManager{
		States:        make(map[string]models.ServiceState),
		Details:       make(map[string]*models.ServiceStatus),
		Fragments:     make(map[string]string),
		Logs:          make(map[string]string),
		EnabledByName: make(map[string]bool),
		StateErrs:     make(map[string]error),
	}
}

func (m *MockManager) record(op string, name ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(name) > 0 {
		op += " " + name[0]
	}
	m.Calls = append(m.Calls, op)
}

// CallLog returns a copy of the recorded calls.
func (m *MockManager) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *MockManager) ListUnits(ctx context.Context) ([]UnitEntry, error) {
	m.record("list-units")
	if m.ListUnitsErr != nil {
		return nil, m.ListUnitsErr
	}
	return append([]UnitEntry(nil), m.Units...), nil
}

func (m *MockManager) ListEnabled(ctx context.Context) ([]string, error) {
	m.record("list-enabled")
	if m.ListEnabledErr != nil {
		return nil, m.ListEnabledErr
	}
	return append([]string(nil), m.Enabled...), nil
}

func (m *MockManager) ActiveState(ctx context.Context, name string) (models.ServiceState, error) {
	m.record("is-active", name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.StateErrs[name]; err != nil {
		return models.StateInactive, err
	}
	if s, ok := m.States[name]; ok {
		return s, nil
	}
	return models.StateInactive, nil
}

func (m *MockManager) IsEnabled(ctx context.Context, name string) (bool, error) {
	m.record("is-enabled", name)
	if m.IsEnabledErr != nil {
		return false, m.IsEnabledErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EnabledByName[name], nil
}

func (m *MockManager) Start(ctx context.Context, name string) error {
	m.record("start", name)
	return m.ActionErr
}

func (m *MockManager) Stop(ctx context.Context, name string) error {
	m.record("stop", name)
	return m.ActionErr
}

func (m *MockManager) Restart(ctx context.Context, name string) error {
	m.record("restart", name)
	return m.ActionErr
}

func (m *MockManager) Enable(ctx context.Context, name string) error {
	m.record("enable", name)
	return m.ActionErr
}

func (m *MockManager) Disable(ctx context.Context, name string) error {
	m.record("disable", name)
	return m.ActionErr
}

func (m *MockManager) DaemonReload(ctx context.Context) error {
	m.record("daemon-reload")
	return m.ReloadErr
}

func (m *MockManager) FragmentPath(ctx context.Context, name string) (string, error) {
	m.record("fragment-path", name)
	if m.FragmentErr != nil {
		return "", m.FragmentErr
	}
	return m.Fragments[name], nil
}

func (m *MockManager) GetLogs(ctx context.Context, name string, lines int) (string, error) {
	m.record("logs", name)
	if m.LogsErr != nil {
		return "", m.LogsErr
	}
	return m.Logs[name], nil
}

func (m *MockManager) GetDetailedStatus(ctx context.Context, name string) (*models.ServiceStatus, error) {
	m.record("status", name)
	if m.DetailsErr != nil {
		return nil, m.DetailsErr
	}
	if d, ok := m.Details[name]; ok {
		return d, nil
	}
	return &models.ServiceStatus{Name: name, ActiveState: string(m.States[name])}, nil
}

// FollowLogsCommand returns a harmless command in place of journalctl -f.
func (m *MockManager) FollowLogsCommand(name string) *exec.Cmd {
	m.record("follow", name)
	return exec.Command("true")
}

var _ ServiceManager = (*Manager)(nil)
var _ ServiceManager = (*MockManager)(nil)
