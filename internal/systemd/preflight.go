package systemd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CheckResult represents the result of a single pre-flight check.
type CheckResult struct {
	Name       string // Name of the check
	Passed     bool   // Whether the check passed
	Message    string // Error or success message
	Suggestion string // User-friendly suggestion for fixing the issue
	IsCritical bool   // If true, the application cannot continue without this check passing
}

var lookPath = exec.LookPath

// PreflightChecks verifies the host can be managed and returns the results.
func (m *Manager) PreflightChecks(ctx context.Context) []CheckResult {
	var results []CheckResult

	results = append(results, checkBinary("systemctl", true,
		"This application requires systemd. Use a systemd-based Linux distribution"))

	if !results[0].Passed {
		results = append(results, CheckResult{
			Name:       "Systemd Manager",
			Passed:     false,
			Message:    "Skipped: systemctl not found",
			Suggestion: "Install systemd first",
			IsCritical: true,
		})
	} else {
		results = append(results, m.checkSystemdRunning(ctx))
	}

	results = append(results, checkBinary("journalctl", false,
		"Log viewing needs journalctl, which ships with systemd"))

	if m.sudo {
		results = append(results, checkBinary("sudo", false,
			"Install sudo or set settings.use_sudo to false when running as root"))
	}

	return results
}

func checkBinary(bin string, critical bool, suggestion string) CheckResult {
	result := CheckResult{
		Name:       strings.ToUpper(bin[:1]) + bin[1:] + " Binary",
		IsCritical: critical,
	}

	path, err := lookPath(bin)
	if err != nil {
		result.Message = fmt.Sprintf("%s not found in PATH", bin)
		result.Suggestion = suggestion
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Found %s at: %s", bin, path)
	return result
}

// checkSystemdRunning asks the manager instance for the selected scope
// whether it is reachable.
func (m *Manager) checkSystemdRunning(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:       "Systemd Manager",
		IsCritical: true,
	}

	scope := "system"
	if m.user {
		scope = "user"
	}

	output, err := m.query(ctx, "is-system-running")
	outputStr := strings.TrimSpace(string(output))

	if err != nil {
		if strings.Contains(outputStr, "Failed to connect to bus") ||
			strings.Contains(outputStr, "No such file or directory") ||
			strings.Contains(outputStr, "Connection refused") ||
			outputStr == "offline" {
			result.Message = fmt.Sprintf("Systemd %s manager is not available", scope)
			if m.user {
				result.Suggestion = "Ensure you are logged in with a systemd user session"
			} else {
				result.Suggestion = "Ensure systemd is PID 1; containers often run without it"
			}
			return result
		}

		// degraded, starting and the like still answer queries
		result.Passed = true
		result.Message = fmt.Sprintf("Systemd %s manager detected (state: %s)", scope, outputStr)
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Systemd %s manager is %s", scope, outputStr)
	return result
}

// HasCriticalFailure returns true if any check result has a critical failure.
func HasCriticalFailure(results []CheckResult) bool {
	for _, r := range results {
		if !r.Passed && r.IsCritical {
			return true
		}
	}
	return false
}

// AllPassed returns true if all checks passed.
func AllPassed(results []CheckResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// FormatResults formats the check results for display.
func FormatResults(results []CheckResult) string {
	var sb strings.Builder

	sb.WriteString("Pre-flight Check Results:\n")
	sb.WriteString(strings.Repeat("-", 60) + "\n")

	for _, r := range results {
		status := "✓ PASS"
		if !r.Passed {
			if r.IsCritical {
				status = "✗ FAIL (critical)"
			} else {
				status = "⚠ FAIL (optional)"
			}
		}

		sb.WriteString(fmt.Sprintf("\n[%s] %s\n", status, r.Name))
		sb.WriteString(fmt.Sprintf("  %s\n", r.Message))
		if r.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("  Suggestion: %s\n", r.Suggestion))
		}
	}

	return sb.String()
}
