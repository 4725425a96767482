package cli

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dtg01100/systemctl-manager/internal/models"
	"github.com/dtg01100/systemctl-manager/internal/view"
)

func TestListTable(t *testing.T) {
	testEnv(t)

	out, _, err := runCmd(t, rootCmd, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Errorf("expected header, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "cron") || !strings.Contains(lines[1], "active (enabled)") {
		t.Errorf("unexpected cron row %q", lines[1])
	}
	if !strings.Contains(lines[2], "failed (disabled)") {
		t.Errorf("unexpected nginx row %q", lines[2])
	}
	if !strings.Contains(lines[3], "inactive (enabled)") {
		t.Errorf("unexpected ssh row %q", lines[3])
	}
}

func TestListFavoritesFirst(t *testing.T) {
	testEnv(t)

	if _, _, err := runCmd(t, rootCmd, "favorites", "toggle", "ssh"); err != nil {
		t.Fatalf("favorites toggle failed: %v", err)
	}

	out, _, err := runCmd(t, rootCmd, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, favorite, separator and 2 rows, got:\n%s", out)
	}
	if !strings.Contains(lines[1], view.FavoriteGlyph+" ssh") {
		t.Errorf("expected ssh pinned first, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], view.SeparatorLabel) {
		t.Errorf("expected separator, got %q", lines[2])
	}
}

func TestListSearch(t *testing.T) {
	testEnv(t)

	out, _, err := runCmd(t, rootCmd, "list", "--search", "SECURE")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "ssh") || strings.Contains(out, "nginx") || strings.Contains(out, "cron") {
		t.Errorf("expected only ssh, got:\n%s", out)
	}
}

func TestListJSON(t *testing.T) {
	testEnv(t)

	out, _, err := runCmd(t, rootCmd, "list", "--json")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var entries []listEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Name != "nginx" || entries[1].Status != models.StateFailed || entries[1].Favorite {
		t.Errorf("unexpected nginx entry %+v", entries[1])
	}
}

func TestListNoServices(t *testing.T) {
	mock, _ := testEnv(t)
	mock.Units = nil

	out, _, err := runCmd(t, rootCmd, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "No services found.") {
		t.Errorf("expected empty message, got %q", out)
	}
}

func TestListError(t *testing.T) {
	mock, _ := testEnv(t)
	mock.ListUnitsErr = errors.New("exit status 1")

	_, _, err := runCmd(t, rootCmd, "list")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed to get services list") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestListCorruptStateFile(t *testing.T) {
	_, cfg := testEnv(t)
	if err := os.WriteFile(cfg.StateFile, []byte("favoriteServices: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCmd(t, rootCmd, "list")
	if err != nil {
		t.Fatalf("list should ignore a corrupt state file: %v", err)
	}
	if strings.Contains(out, view.SeparatorLabel) {
		t.Errorf("expected no favorites, got:\n%s", out)
	}

	if _, _, err := runCmd(t, rootCmd, "favorites", "toggle", "ssh"); err != nil {
		t.Fatalf("favorites toggle failed: %v", err)
	}
	data, err := os.ReadFile(cfg.StateFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ssh") {
		t.Errorf("state file not rewritten: %s", data)
	}
}

func TestStatus(t *testing.T) {
	mock, _ := testEnv(t)
	mock.Details["nginx"] = &models.ServiceStatus{
		Name:        "nginx",
		Description: "A high performance web server",
		UnitFile:    "/lib/systemd/system/nginx.service",
		LoadState:   "loaded",
		ActiveState: "failed",
		SubState:    "failed",
		ExitCode:    1,
		ActivatedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	out, _, err := runCmd(t, rootCmd, "status", "nginx")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{
		"Name: nginx",
		"Unit File: /lib/systemd/system/nginx.service",
		"Active State: failed",
		"Exit Code: 1",
		"Activated: 2024-01-15T10:30:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Main PID") {
		t.Errorf("Main PID should be omitted when zero:\n%s", out)
	}
}

func TestStatusJSON(t *testing.T) {
	mock, _ := testEnv(t)
	mock.Details["cron"] = &models.ServiceStatus{Name: "cron", ActiveState: "active", MainPID: 812}

	out, _, err := runCmd(t, rootCmd, "status", "cron", "-j")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}

	var status models.ServiceStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.MainPID != 812 {
		t.Errorf("MainPID = %d, want 812", status.MainPID)
	}
}

func TestStatusError(t *testing.T) {
	mock, _ := testEnv(t)
	mock.DetailsErr = errors.New("unit not found")

	_, _, err := runCmd(t, rootCmd, "status", "missing")
	if err == nil || !strings.Contains(err.Error(), "failed to get status") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestActionCommands(t *testing.T) {
	tests := []struct {
		args []string
		want string
		call string
	}{
		{[]string{"start", "nginx"}, "Service nginx started", "start nginx"},
		{[]string{"stop", "nginx"}, "Service nginx stopped", "stop nginx"},
		{[]string{"restart", "nginx"}, "Service nginx restarted", "restart nginx"},
		{[]string{"reload"}, "Systemd daemon reloaded", "daemon-reload"},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			mock, _ := testEnv(t)

			out, _, err := runCmd(t, rootCmd, tt.args...)
			if err != nil {
				t.Fatalf("%v failed: %v", tt.args, err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
			calls := mock.CallLog()
			if len(calls) != 1 || calls[0] != tt.call {
				t.Errorf("calls = %v, want [%s]", calls, tt.call)
			}
		})
	}
}

func TestActionCommandFailure(t *testing.T) {
	mock, _ := testEnv(t)
	mock.ActionErr = errors.New("Job for nginx.service failed")

	_, _, err := runCmd(t, rootCmd, "restart", "nginx")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "Failed to restart nginx") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestToggleEnabled(t *testing.T) {
	mock, _ := testEnv(t)
	mock.EnabledByName["cron"] = true

	out, _, err := runCmd(t, rootCmd, "toggle-enabled", "cron")
	if err != nil {
		t.Fatalf("toggle-enabled failed: %v", err)
	}
	if strings.TrimSpace(out) != "Service cron disabled" {
		t.Errorf("unexpected output %q", out)
	}

	out, _, err = runCmd(t, rootCmd, "toggle-enabled", "nginx")
	if err != nil {
		t.Fatalf("toggle-enabled failed: %v", err)
	}
	if strings.TrimSpace(out) != "Service nginx enabled" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLogs(t *testing.T) {
	mock, _ := testEnv(t)
	mock.Logs["nginx"] = "Jan 15 10:30:00 host nginx[1]: started\n"

	out, _, err := runCmd(t, rootCmd, "logs", "nginx", "-n", "5")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if out != mock.Logs["nginx"] {
		t.Errorf("unexpected logs %q", out)
	}
}

func TestLogsError(t *testing.T) {
	mock, _ := testEnv(t)
	mock.LogsErr = errors.New("no journal")

	_, _, err := runCmd(t, rootCmd, "logs", "nginx")
	if err == nil || !strings.Contains(err.Error(), "failed to get logs") {
		t.Fatalf("expected logs error, got %v", err)
	}
}

func TestLogsFollow(t *testing.T) {
	mock, _ := testEnv(t)

	var ran *exec.Cmd
	runInteractive = func(c *exec.Cmd) error {
		ran = c
		return nil
	}

	if _, _, err := runCmd(t, rootCmd, "logs", "nginx", "--follow"); err != nil {
		t.Fatalf("logs --follow failed: %v", err)
	}
	if ran == nil {
		t.Fatal("expected follow command to run interactively")
	}
	calls := mock.CallLog()
	if len(calls) != 1 || calls[0] != "follow nginx" {
		t.Errorf("calls = %v", calls)
	}
}

func TestEdit(t *testing.T) {
	mock, cfg := testEnv(t)
	mock.Fragments["nginx"] = "/lib/systemd/system/nginx.service"
	cfg.Settings.Editor = "nano -w"

	var ran *exec.Cmd
	runInteractive = func(c *exec.Cmd) error {
		ran = c
		return nil
	}

	if _, _, err := runCmd(t, rootCmd, "edit", "nginx"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if ran == nil {
		t.Fatal("expected editor to run")
	}
	want := []string{"nano", "-w", "/lib/systemd/system/nginx.service"}
	if strings.Join(ran.Args, " ") != strings.Join(want, " ") {
		t.Errorf("editor args = %v, want %v", ran.Args, want)
	}
}

func TestEditFragmentError(t *testing.T) {
	mock, _ := testEnv(t)
	mock.FragmentErr = errors.New("no such unit")

	runInteractive = func(c *exec.Cmd) error {
		t.Fatal("editor should not run")
		return nil
	}

	_, _, err := runCmd(t, rootCmd, "edit", "ghost")
	if err == nil || !strings.HasPrefix(err.Error(), "Failed to open config for ghost") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewPrintsTemplate(t *testing.T) {
	testEnv(t)

	out, _, err := runCmd(t, rootCmd, "new", "my-app")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	for _, want := range []string{"[Unit]", "Description=my-app service", "ExecStart=/usr/local/bin/my-app"} {
		if !strings.Contains(out, want) {
			t.Errorf("template missing %q:\n%s", want, out)
		}
	}
}

func TestNewWritesFile(t *testing.T) {
	testEnv(t)
	target := filepath.Join(t.TempDir(), "my-app.service")

	out, _, err := runCmd(t, rootCmd, "new", "my-app", "-o", target)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if !strings.Contains(out, "Wrote "+target) {
		t.Errorf("unexpected output %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("unit not written: %v", err)
	}
	if !strings.Contains(string(data), "WantedBy=multi-user.target") {
		t.Errorf("unexpected unit content:\n%s", data)
	}
}

func TestNewRejectsInvalidName(t *testing.T) {
	testEnv(t)

	if _, _, err := runCmd(t, rootCmd, "new", "My_App"); err == nil {
		t.Fatal("expected validation error")
	}
}
