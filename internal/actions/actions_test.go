package actions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
)

func newDispatcher(t *testing.T, m *systemd.MockManager) (*Dispatcher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDispatcher(m, logger.FromZap(zap.New(core)), "")
	d.generator = systemd.NewGeneratorInDir(t.TempDir())
	d.getenv = func(string) string { return "" }
	return d, logs
}

func TestServiceActions(t *testing.T) {
	tests := []struct {
		name    string
		run     func(d *Dispatcher) Notification
		call    string
		success string
		failure string
	}{
		{"start", func(d *Dispatcher) Notification { return d.Start(context.Background(), "nginx") }, "start nginx", "Service nginx started", "Failed to start nginx"},
		{"stop", func(d *Dispatcher) Notification { return d.Stop(context.Background(), "nginx") }, "stop nginx", "Service nginx stopped", "Failed to stop nginx"},
		{"restart", func(d *Dispatcher) Notification { return d.Restart(context.Background(), "nginx") }, "restart nginx", "Service nginx restarted", "Failed to restart nginx"},
		{"reload", func(d *Dispatcher) Notification { return d.ReloadDaemon(context.Background()) }, "daemon-reload", "Systemd daemon reloaded", "Failed to reload systemd daemon"},
	}

	for _, tt := range tests {
		t.Run(tt.name+" ok", func(t *testing.T) {
			m := systemd.NewMockManager()
			d, _ := newDispatcher(t, m)

			n := tt.run(d)
			assert.False(t, n.IsError())
			assert.Equal(t, tt.success, n.Text)
			assert.Equal(t, []string{tt.call}, m.CallLog())
		})
		t.Run(tt.name+" failure", func(t *testing.T) {
			m := systemd.NewMockManager()
			m.ActionErr = errors.New("exit status 1")
			m.ReloadErr = m.ActionErr
			d, _ := newDispatcher(t, m)

			n := tt.run(d)
			assert.True(t, n.IsError())
			assert.Equal(t, tt.failure, n.Text)
			assert.Error(t, n.Err)
		})
	}
}

func TestToggleEnabled(t *testing.T) {
	m := systemd.NewMockManager()
	m.EnabledByName["cron"] = true
	d, _ := newDispatcher(t, m)

	n := d.ToggleEnabled(context.Background(), "cron")
	assert.Equal(t, "Service cron disabled", n.Text)
	assert.Equal(t, []string{"is-enabled cron", "disable cron"}, m.CallLog())

	m2 := systemd.NewMockManager()
	d2, _ := newDispatcher(t, m2)
	n = d2.ToggleEnabled(context.Background(), "sshd")
	assert.Equal(t, "Service sshd enabled", n.Text)
	assert.Equal(t, []string{"is-enabled sshd", "enable sshd"}, m2.CallLog())
}

func TestToggleEnabled_Failures(t *testing.T) {
	m := systemd.NewMockManager()
	m.IsEnabledErr = errors.New("bus error")
	d, _ := newDispatcher(t, m)

	n := d.ToggleEnabled(context.Background(), "cron")
	assert.True(t, n.IsError())
	assert.Equal(t, "Failed to toggle cron enabled state", n.Text)
	assert.Equal(t, []string{"is-enabled cron"}, m.CallLog(), "no change issued after a failed query")

	m2 := systemd.NewMockManager()
	m2.ActionErr = errors.New("exit status 1")
	d2, _ := newDispatcher(t, m2)
	n = d2.ToggleEnabled(context.Background(), "cron")
	assert.Equal(t, "Failed to toggle cron enabled state", n.Text)
}

func TestActionsLogOperationID(t *testing.T) {
	m := systemd.NewMockManager()
	d, logs := newDispatcher(t, m)

	d.Start(context.Background(), "nginx")
	d.Stop(context.Background(), "nginx")

	entries := logs.FilterMessage("action succeeded").All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	second := entries[1].ContextMap()
	assert.Equal(t, "start", first["action"])
	assert.Equal(t, "nginx", first["service"])
	assert.NotEmpty(t, first["op_id"])
	assert.NotEqual(t, first["op_id"], second["op_id"])
}

func TestFollowLogs(t *testing.T) {
	m := systemd.NewMockManager()
	d, _ := newDispatcher(t, m)

	cmd := d.FollowLogs("nginx")
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"follow nginx"}, m.CallLog())
}

func TestOpenConfig(t *testing.T) {
	m := systemd.NewMockManager()
	m.Fragments["nginx"] = "/lib/systemd/system/nginx.service"
	d, _ := newDispatcher(t, m)
	d.editor = "nano -w"

	cmd, n := d.OpenConfig(context.Background(), "nginx")
	require.NotNil(t, cmd)
	assert.False(t, n.IsError())
	assert.Equal(t, []string{"nano", "-w", "/lib/systemd/system/nginx.service"}, cmd.Args)
}

func TestOpenConfig_Failure(t *testing.T) {
	m := systemd.NewMockManager()
	m.FragmentErr = apperrors.NewServiceNotFoundError("ghost", nil)
	d, _ := newDispatcher(t, m)

	cmd, n := d.OpenConfig(context.Background(), "ghost")
	assert.Nil(t, cmd)
	assert.Equal(t, "Failed to open config for ghost", n.Text)
	assert.ErrorIs(t, n.Err, apperrors.ErrServiceNotFound)
}

func TestEditorResolution(t *testing.T) {
	env := map[string]string{}
	d := NewDispatcher(systemd.NewMockManager(), nil, "")
	d.getenv = func(k string) string { return env[k] }

	assert.Equal(t, "vi", d.Editor())

	env["EDITOR"] = "nano"
	assert.Equal(t, "nano", d.Editor())

	env["VISUAL"] = "code --wait"
	assert.Equal(t, "code --wait", d.Editor())

	d.editor = "hx"
	assert.Equal(t, "hx", d.Editor())
}

func TestNewServiceTemplate(t *testing.T) {
	d, _ := newDispatcher(t, systemd.NewMockManager())

	content, err := d.NewServiceTemplate("my-app")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "[Unit]\nDescription=my-app service\n"))

	_, err = d.NewServiceTemplate("My App")
	assert.ErrorIs(t, err, apperrors.ErrInvalidServiceName)
}

func TestDraftNewService(t *testing.T) {
	d, _ := newDispatcher(t, systemd.NewMockManager())
	d.editor = "vim"

	cmd, n := d.DraftNewService(" worker ")
	require.NotNil(t, cmd)
	assert.False(t, n.IsError())

	path := cmd.Args[len(cmd.Args)-1]
	assert.Equal(t, "worker.service", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ExecStart=/usr/local/bin/worker")

	cmd, n = d.DraftNewService("Bad_Name")
	assert.Nil(t, cmd)
	assert.True(t, n.IsError())
	assert.ErrorIs(t, n.Err, apperrors.ErrInvalidServiceName)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "error", LevelError.String())
}
