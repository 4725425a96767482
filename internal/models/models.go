// Package models defines the core data structures for the systemctl-manager application.
package models

import (
	"time"
)

// ServiceState is the activation state of a service as shown to the user.
// Anything systemd reports other than active or failed is collapsed to inactive.
type ServiceState string

const (
	StateActive   ServiceState = "active"
	StateInactive ServiceState = "inactive"
	StateFailed   ServiceState = "failed"
)

// ParseServiceState maps raw `systemctl is-active` output onto a ServiceState.
func ParseServiceState(raw string) ServiceState {
	switch raw {
	case "active":
		return StateActive
	case "failed":
		return StateFailed
	default:
		return StateInactive
	}
}

// String returns the state as displayed.
func (s ServiceState) String() string {
	return string(s)
}

// ServiceRecord is one service unit discovered on the host.
// Records are built fresh on every fetch and are not mutated afterwards.
type ServiceRecord struct {
	Name        string       `json:"name" yaml:"name"`
	Status      ServiceState `json:"status" yaml:"status"`
	Enabled     bool         `json:"enabled" yaml:"enabled"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
}

// EnabledLabel returns "enabled" or "disabled".
func (r ServiceRecord) EnabledLabel() string {
	if r.Enabled {
		return "enabled"
	}
	return "disabled"
}

// ServiceStatus represents the detailed status of a systemd service.
type ServiceStatus struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description,omitempty"`
	UnitFile    string `json:"unit_file,omitempty" mapstructure:"unit_file,omitempty"`

	// Systemd Status
	LoadState   string `json:"load_state" mapstructure:"load_state"`     // "loaded", "not-found", etc.
	ActiveState string `json:"active_state" mapstructure:"active_state"` // "active", "inactive", "failed"
	SubState    string `json:"sub_state" mapstructure:"sub_state"`       // "running", "exited", "dead", etc.

	// Service Details
	Enabled  bool `json:"enabled" mapstructure:"enabled"`
	MainPID  int  `json:"main_pid,omitempty" mapstructure:"main_pid,omitempty"`
	ExitCode int  `json:"exit_code,omitempty" mapstructure:"exit_code,omitempty"`

	// Timestamps
	ActivatedAt time.Time `json:"activated_at,omitempty" mapstructure:"activated_at,omitempty"`
	InactiveAt  time.Time `json:"inactive_at,omitempty" mapstructure:"inactive_at,omitempty"`
}

// State returns the collapsed display state for the detailed status.
func (s *ServiceStatus) State() ServiceState {
	return ParseServiceState(s.ActiveState)
}
