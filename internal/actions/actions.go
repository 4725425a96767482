// Package actions maps user commands onto systemctl invocations and turns
// their outcome into notifications.
package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
)

// Level is the severity of a Notification.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notification is the user-visible outcome of an action.
type Notification struct {
	Level Level
	Text  string
	Err   error // underlying failure, for logs and verbose output
}

// IsError reports whether the action failed.
func (n Notification) IsError() bool {
	return n.Level == LevelError
}

func info(format string, args ...interface{}) Notification {
	return Notification{Level: LevelInfo, Text: fmt.Sprintf(format, args...)}
}

func failure(err error, format string, args ...interface{}) Notification {
	return Notification{Level: LevelError, Text: fmt.Sprintf(format, args...), Err: err}
}

// Dispatcher runs actions against a ServiceManager. Its action methods
// never return errors; failures come back as error notifications.
type Dispatcher struct {
	manager   systemd.ServiceManager
	generator *systemd.Generator
	log       logger.Logger
	editor    string
	getenv    func(string) string
}

// NewDispatcher creates a dispatcher. editor overrides $VISUAL and $EDITOR
// when set.
func NewDispatcher(manager systemd.ServiceManager, log logger.Logger, editor string) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{
		manager:   manager,
		generator: systemd.NewGeneratorInDir(systemd.DraftDir()),
		log:       log,
		editor:    editor,
		getenv:    os.Getenv,
	}
}

// op runs fn with a logger tagged with a fresh operation id.
func (d *Dispatcher) op(action, name string, fn func(log logger.Logger) error) error {
	log := d.log.With(
		logger.String("op_id", uuid.NewString()),
		logger.String("action", action),
		logger.Service(name),
	)
	start := time.Now()
	err := fn(log)
	if err != nil {
		log.Error("action failed", logger.Error(err), logger.Duration("duration", time.Since(start)))
		return err
	}
	log.Info("action succeeded", logger.Duration("duration", time.Since(start)))
	return nil
}

// Start starts a service.
func (d *Dispatcher) Start(ctx context.Context, name string) Notification {
	err := d.op("start", name, func(logger.Logger) error { return d.manager.Start(ctx, name) })
	if err != nil {
		return failure(err, "Failed to start %s", name)
	}
	return info("Service %s started", name)
}

// Stop stops a service.
func (d *Dispatcher) Stop(ctx context.Context, name string) Notification {
	err := d.op("stop", name, func(logger.Logger) error { return d.manager.Stop(ctx, name) })
	if err != nil {
		return failure(err, "Failed to stop %s", name)
	}
	return info("Service %s stopped", name)
}

// Restart restarts a service.
func (d *Dispatcher) Restart(ctx context.Context, name string) Notification {
	err := d.op("restart", name, func(logger.Logger) error { return d.manager.Restart(ctx, name) })
	if err != nil {
		return failure(err, "Failed to restart %s", name)
	}
	return info("Service %s restarted", name)
}

// ToggleEnabled disables an enabled service and enables any other.
func (d *Dispatcher) ToggleEnabled(ctx context.Context, name string) Notification {
	var enabled bool
	err := d.op("toggle-enabled", name, func(log logger.Logger) error {
		var err error
		enabled, err = d.manager.IsEnabled(ctx, name)
		if err != nil {
			return err
		}
		log.Debug("current enablement", logger.Bool("enabled", enabled))
		if enabled {
			return d.manager.Disable(ctx, name)
		}
		return d.manager.Enable(ctx, name)
	})
	if err != nil {
		return failure(err, "Failed to toggle %s enabled state", name)
	}
	if enabled {
		return info("Service %s disabled", name)
	}
	return info("Service %s enabled", name)
}

// ReloadDaemon runs daemon-reload.
func (d *Dispatcher) ReloadDaemon(ctx context.Context) Notification {
	err := d.op("daemon-reload", "", func(logger.Logger) error { return d.manager.DaemonReload(ctx) })
	if err != nil {
		return failure(err, "Failed to reload systemd daemon")
	}
	return info("Systemd daemon reloaded")
}

// FollowLogs returns the command streaming a service's journal. The caller
// attaches it to the terminal; it runs until interrupted.
func (d *Dispatcher) FollowLogs(name string) *exec.Cmd {
	d.log.Info("following logs", logger.Service(name))
	return d.manager.FollowLogsCommand(name)
}

// OpenConfig resolves the unit file of name and returns the editor command
// for it. On failure the command is nil.
func (d *Dispatcher) OpenConfig(ctx context.Context, name string) (*exec.Cmd, Notification) {
	var path string
	err := d.op("open-config", name, func(log logger.Logger) error {
		var err error
		path, err = d.manager.FragmentPath(ctx, name)
		if err == nil {
			log.Debug("resolved unit file", logger.String("path", path))
		}
		return err
	})
	if err != nil {
		return nil, failure(err, "Failed to open config for %s", name)
	}
	return d.EditorCommand(path), info("Opened %s", path)
}

// NewServiceTemplate returns the default unit text for name, or a
// validation error.
func (d *Dispatcher) NewServiceTemplate(name string) (string, error) {
	return d.generator.GenerateService(name)
}

// DraftNewService writes the default unit for name to a scratch file and
// returns the editor command for it.
func (d *Dispatcher) DraftNewService(name string) (*exec.Cmd, Notification) {
	var path string
	err := d.op("new-service", name, func(logger.Logger) error {
		var err error
		path, err = d.generator.WriteService(name)
		return err
	})
	if err != nil {
		return nil, failure(err, "Failed to create service %s: %v", strings.TrimSpace(name), err)
	}
	return d.EditorCommand(path), info("Draft written to %s", path)
}

// Editor returns the configured editor, then $VISUAL, then $EDITOR, then vi.
func (d *Dispatcher) Editor() string {
	for _, e := range []string{d.editor, d.getenv("VISUAL"), d.getenv("EDITOR")} {
		if strings.TrimSpace(e) != "" {
			return e
		}
	}
	return "vi"
}

// EditorCommand returns the editor invocation for path. The editor setting
// may carry arguments, e.g. "code --wait".
func (d *Dispatcher) EditorCommand(path string) *exec.Cmd {
	parts := strings.Fields(d.Editor())
	args := append(parts[1:], path)
	return exec.Command(parts[0], args...)
}
