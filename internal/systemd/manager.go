// Package systemd wraps the systemctl and journalctl command line tools.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/models"
)

// ServiceManager is the set of systemd operations the rest of the
// application depends on.
type ServiceManager interface {
	ListUnits(ctx context.Context) ([]UnitEntry, error)
	ListEnabled(ctx context.Context) ([]string, error)
	ActiveState(ctx context.Context, name string) (models.ServiceState, error)
	IsEnabled(ctx context.Context, name string) (bool, error)

	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
	DaemonReload(ctx context.Context) error

	FragmentPath(ctx context.Context, name string) (string, error)
	GetLogs(ctx context.Context, name string, lines int) (string, error)
	GetDetailedStatus(ctx context.Context, name string) (*models.ServiceStatus, error)
	FollowLogsCommand(name string) *exec.Cmd
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Options configures a Manager.
type Options struct {
	UserScope bool
	UseSudo   bool
	// NonInteractiveSudo adds -n so sudo fails instead of prompting.
	// The TUI sets it because it owns the terminal.
	NonInteractiveSudo bool
	Timeout            time.Duration
	Logger             logger.Logger
}

// Manager handles systemd service operations.
type Manager struct {
	systemctlPath  string
	journalctlPath string
	user           bool
	sudo           bool
	sudoFlags      []string
	timeout        time.Duration
	run            Runner
	log            logger.Logger
}

// NewManager creates a new systemd manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		systemctlPath:  lookPathOr("systemctl", "/usr/bin/systemctl"),
		journalctlPath: lookPathOr("journalctl", "/usr/bin/journalctl"),
		user:           opts.UserScope,
		sudo:           opts.UseSudo && !opts.UserScope,
		timeout:        opts.Timeout,
		run:            execRunner,
		log:            opts.Logger,
	}
	if opts.NonInteractiveSudo {
		m.sudoFlags = []string{"-n"}
	}
	if m.log == nil {
		m.log = logger.NewNop()
	}
	return m
}

// WithRunner replaces the command runner. Used by tests.
func (m *Manager) WithRunner(r Runner) *Manager {
	m.run = r
	return m
}

// UserScope reports whether the manager talks to the user instance.
func (m *Manager) UserScope() bool {
	return m.user
}

func lookPathOr(bin, fallback string) string {
	if p, err := exec.LookPath(bin); err == nil {
		return p
	}
	return fallback
}

// unitName appends the .service suffix when missing.
func unitName(name string) string {
	if strings.HasSuffix(name, ".service") {
		return name
	}
	return name + ".service"
}

func (m *Manager) scopeArgs() []string {
	if m.user {
		return []string{"--user"}
	}
	return nil
}

// query runs an unprivileged systemctl command.
func (m *Manager) query(ctx context.Context, args ...string) ([]byte, error) {
	return m.exec(ctx, false, m.systemctlPath, append(m.scopeArgs(), args...)...)
}

// privileged runs a systemctl command that changes state.
func (m *Manager) privileged(ctx context.Context, args ...string) ([]byte, error) {
	return m.exec(ctx, m.sudo, m.systemctlPath, append(m.scopeArgs(), args...)...)
}

func (m *Manager) exec(ctx context.Context, sudo bool, bin string, args ...string) ([]byte, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	name := bin
	if sudo {
		name = "sudo"
		args = append(append(append([]string{}, m.sudoFlags...), bin), args...)
	}

	start := time.Now()
	out, err := m.run(ctx, name, args...)
	m.log.Debug("command finished",
		logger.String("cmd", name),
		logger.Strings("args", args),
		logger.Duration("duration", time.Since(start)),
		logger.Bool("ok", err == nil),
	)
	if err != nil && errors.Is(err, exec.ErrNotFound) {
		return out, apperrors.NewSystemctlNotFoundError(err)
	}
	return out, err
}

func (m *Manager) simple(ctx context.Context, op, name string) error {
	output, err := m.privileged(ctx, op, unitName(name))
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		if permissionDenied(output) {
			return apperrors.NewPermissionDeniedError(op, unitName(name), err)
		}
		return fmt.Errorf("%s %s failed: %w, output: %s", op, name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// permissionDenied reports whether systemctl or sudo refused the request.
func permissionDenied(output []byte) bool {
	out := strings.ToLower(string(output))
	return strings.Contains(out, "access denied") ||
		strings.Contains(out, "interactive authentication required") ||
		strings.Contains(out, "a password is required")
}

// Start starts a unit.
func (m *Manager) Start(ctx context.Context, name string) error {
	return m.simple(ctx, "start", name)
}

// Stop stops a unit.
func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.simple(ctx, "stop", name)
}

// Restart restarts a unit.
func (m *Manager) Restart(ctx context.Context, name string) error {
	return m.simple(ctx, "restart", name)
}

// Enable enables a unit.
func (m *Manager) Enable(ctx context.Context, name string) error {
	return m.simple(ctx, "enable", name)
}

// Disable disables a unit.
func (m *Manager) Disable(ctx context.Context, name string) error {
	return m.simple(ctx, "disable", name)
}

// DaemonReload reloads the systemd daemon to pick up unit file changes.
func (m *Manager) DaemonReload(ctx context.Context) error {
	output, err := m.privileged(ctx, "daemon-reload")
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("daemon-reload failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ListUnits returns every loaded service unit, active or not.
func (m *Manager) ListUnits(ctx context.Context) ([]UnitEntry, error) {
	output, err := m.query(ctx, "list-units", "--type=service", "--all", "--no-pager", "--no-legend", "--plain")
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("list-units failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	units, skipped := parseUnitList(string(output))
	for _, line := range skipped {
		m.log.Debug("skipping unit line", logger.Error(apperrors.NewUnexpectedOutputError("list-units", line)))
	}
	return units, nil
}

// ListEnabled returns the names of enabled service unit files.
func (m *Manager) ListEnabled(ctx context.Context) ([]string, error) {
	output, err := m.query(ctx, "list-unit-files", "--type=service", "--state=enabled", "--no-pager", "--no-legend")
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("list-unit-files failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}
	return parseEnabledList(string(output)), nil
}

// ActiveState returns the collapsed activation state of a unit.
// is-active exits non-zero for anything but active, so output wins over
// the exit status when there is any.
func (m *Manager) ActiveState(ctx context.Context, name string) (models.ServiceState, error) {
	output, err := m.query(ctx, "is-active", unitName(name))
	if raw := firstLine(output); raw != "" {
		return models.ParseServiceState(raw), nil
	}
	if err != nil {
		return models.StateInactive, fmt.Errorf("is-active %s failed: %w", name, err)
	}
	return models.StateInactive, nil
}

// IsEnabled checks if a unit is enabled.
func (m *Manager) IsEnabled(ctx context.Context, name string) (bool, error) {
	output, err := m.query(ctx, "is-enabled", unitName(name))
	if raw := firstLine(output); raw != "" {
		return raw == "enabled", nil
	}
	if err != nil {
		return false, fmt.Errorf("is-enabled %s failed: %w", name, err)
	}
	return false, nil
}

// FragmentPath returns the path of the unit file backing a service.
func (m *Manager) FragmentPath(ctx context.Context, name string) (string, error) {
	output, err := m.query(ctx, "show", unitName(name), "-p", "FragmentPath")
	if err != nil {
		if apperrors.IsAppError(err) {
			return "", err
		}
		return "", fmt.Errorf("show %s failed: %w, output: %s", name, err, strings.TrimSpace(string(output)))
	}
	path := parseProperties(string(output))["FragmentPath"]
	if path == "" {
		return "", apperrors.NewServiceNotFoundError(name, nil)
	}
	return path, nil
}

// GetLogs returns the last N lines of logs for a service.
func (m *Manager) GetLogs(ctx context.Context, name string, lines int) (string, error) {
	args := append(m.scopeArgs(), "-u", unitName(name), "-n", strconv.Itoa(lines), "--no-pager")
	output, err := m.exec(ctx, false, m.journalctlPath, args...)
	if err != nil {
		if apperrors.IsAppError(err) {
			return "", err
		}
		return "", fmt.Errorf("failed to get logs for %s: %w", name, err)
	}
	return string(output), nil
}

// FollowLogsCommand returns journalctl following a unit's journal.
// It has no deadline; the user ends it with an interrupt.
func (m *Manager) FollowLogsCommand(name string) *exec.Cmd {
	args := append(m.scopeArgs(), "-u", unitName(name), "-f")
	return exec.Command(m.journalctlPath, args...)
}

var detailedProperties = []string{
	"Description",
	"FragmentPath",
	"LoadState",
	"ActiveState",
	"SubState",
	"UnitFileState",
	"MainPID",
	"ExecMainStatus",
	"ActiveEnterTimestamp",
	"InactiveEnterTimestamp",
}

// GetDetailedStatus returns detailed status information for a service.
func (m *Manager) GetDetailedStatus(ctx context.Context, name string) (*models.ServiceStatus, error) {
	output, err := m.query(ctx, "show", unitName(name), "--property="+strings.Join(detailedProperties, ","))
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get detailed status for %s: %w", name, err)
	}

	props := parseProperties(string(output))
	if props["LoadState"] == "not-found" {
		return nil, apperrors.NewServiceNotFoundError(name, nil)
	}

	status := &models.ServiceStatus{
		Name:        strings.TrimSuffix(name, ".service"),
		Description: props["Description"],
		UnitFile:    props["FragmentPath"],
		LoadState:   props["LoadState"],
		ActiveState: props["ActiveState"],
		SubState:    props["SubState"],
		Enabled:     props["UnitFileState"] == "enabled",
	}
	if pid, err := strconv.Atoi(props["MainPID"]); err == nil {
		status.MainPID = pid
	}
	if code, err := strconv.Atoi(props["ExecMainStatus"]); err == nil {
		status.ExitCode = code
	}
	if t, err := parseSystemdTimestamp(props["ActiveEnterTimestamp"]); err == nil {
		status.ActivatedAt = t
	}
	if t, err := parseSystemdTimestamp(props["InactiveEnterTimestamp"]); err == nil {
		status.InactiveAt = t
	}

	return status, nil
}

// parseSystemdTimestamp parses a systemd timestamp string.
func parseSystemdTimestamp(s string) (time.Time, error) {
	if s == "" || s == "n/a" {
		return time.Time{}, nil
	}

	// Unix timestamp in microseconds
	if micros, err := strconv.ParseInt(s, 10, 64); err == nil {
		seconds := micros / 1000000
		nanos := (micros % 1000000) * 1000
		return time.Unix(seconds, nanos), nil
	}

	formats := []string{
		"Mon 2006-01-02 15:04:05 MST",
		"2006-01-02 15:04:05 MST",
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}
