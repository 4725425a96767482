package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseServiceState(t *testing.T) {
	tests := []struct {
		raw  string
		want ServiceState
	}{
		{"active", StateActive},
		{"failed", StateFailed},
		{"inactive", StateInactive},
		{"activating", StateInactive},
		{"deactivating", StateInactive},
		{"unknown", StateInactive},
		{"", StateInactive},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseServiceState(tt.raw); got != tt.want {
				t.Errorf("ParseServiceState(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestServiceRecordEnabledLabel(t *testing.T) {
	if got := (ServiceRecord{Enabled: true}).EnabledLabel(); got != "enabled" {
		t.Errorf("EnabledLabel() = %q, want %q", got, "enabled")
	}
	if got := (ServiceRecord{}).EnabledLabel(); got != "disabled" {
		t.Errorf("EnabledLabel() = %q, want %q", got, "disabled")
	}
}

func TestServiceRecordJSONOmitsEmptyDescription(t *testing.T) {
	data, err := json.Marshal(ServiceRecord{Name: "nginx", Status: StateActive})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "description") {
		t.Errorf("expected description to be omitted, got %s", data)
	}
	if !strings.Contains(string(data), `"status":"active"`) {
		t.Errorf("expected status field, got %s", data)
	}
}

func TestServiceStatusState(t *testing.T) {
	tests := []struct {
		activeState string
		want        ServiceState
	}{
		{"active", StateActive},
		{"failed", StateFailed},
		{"reloading", StateInactive},
	}

	for _, tt := range tests {
		s := &ServiceStatus{ActiveState: tt.activeState}
		if got := s.State(); got != tt.want {
			t.Errorf("State() for %q = %q, want %q", tt.activeState, got, tt.want)
		}
	}
}
