// Package errors provides structured error types for the systemctl-manager application.
// These errors include codes, messages, and user-friendly suggestions to improve
// the user experience when errors occur.
package errors

import (
	"fmt"
	"strings"
)

// AppError represents a structured application error with additional context.
// It implements the error interface and supports error wrapping and comparison.
type AppError struct {
	// Code is a unique identifier for the error type (e.g., "SYS_001")
	Code string

	// Message is a brief description of the error
	Message string

	// Suggestion provides actionable guidance for the user
	Suggestion string

	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface and returns a formatted error message.
func (e *AppError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Message)

	if e.Code != "" {
		sb.WriteString(" (code: ")
		sb.WriteString(e.Code)
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause of the error, enabling error unwrapping.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error type.
// This enables errors.Is() comparisons for AppError types.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	// Match by code if both have codes
	if e.Code != "" && t.Code != "" {
		return e.Code == t.Code
	}
	// Otherwise match by message
	return e.Message == t.Message
}

// FormatForTUI returns a formatted string suitable for display in the TUI.
// The output includes the error message, suggestion, and code in a user-friendly format.
func (e *AppError) FormatForTUI() string {
	var sb strings.Builder

	sb.WriteString("⚠ ")
	sb.WriteString(e.Message)
	sb.WriteString("\n\n")

	if e.Suggestion != "" {
		sb.WriteString(e.Suggestion)
		sb.WriteString("\n\n")
	}

	if e.Code != "" {
		sb.WriteString("Error Code: ")
		sb.WriteString(e.Code)
	}

	return sb.String()
}

// --- Sentinel Errors ---

var (
	// ErrSystemctlNotFound indicates that the systemctl binary was not found.
	ErrSystemctlNotFound = &AppError{
		Code:       "SYS_001",
		Message:    "systemctl is not installed",
		Suggestion: "This application requires systemd. Run it on a systemd-based Linux distribution.",
	}

	// ErrServiceNotFound indicates that a systemd service was not found.
	ErrServiceNotFound = &AppError{
		Code:       "SYS_002",
		Message:    "Systemd service not found",
		Suggestion: "Check the service name with 'systemctl-manager list'.",
	}

	// ErrServiceFailed indicates that a systemctl or journalctl command failed.
	ErrServiceFailed = &AppError{
		Code:       "SYS_003",
		Message:    "Service operation failed",
		Suggestion: "Check the service logs using 'journalctl -u <service-name>' for more details.",
	}

	// ErrUnexpectedOutput indicates that systemctl printed something we could not parse.
	ErrUnexpectedOutput = &AppError{
		Code:       "PARSE_001",
		Message:    "Unexpected systemctl output",
		Suggestion: "The line was skipped. Run with logging.debug enabled to see the raw output.",
	}

	// ErrStatePersist indicates that favorites could not be written to the state file.
	ErrStatePersist = &AppError{
		Code:       "STATE_001",
		Message:    "Failed to save favorites",
		Suggestion: "Check that the state directory is writable. Changes are kept for this session only.",
	}

	// ErrInvalidServiceName indicates that a new service name failed validation.
	ErrInvalidServiceName = &AppError{
		Code:       "VAL_001",
		Message:    "Invalid service name",
		Suggestion: "Use only lowercase letters, numbers, and hyphens.",
	}

	// ErrConfigInvalid indicates a configuration validation error.
	ErrConfigInvalid = &AppError{
		Code:       "CFG_001",
		Message:    "Configuration is invalid",
		Suggestion: "Check your configuration file for errors, or regenerate it with 'systemctl-manager config init'.",
	}

	// ErrPermissionDenied indicates a permission denied error.
	ErrPermissionDenied = &AppError{
		Code:       "PERM_001",
		Message:    "Permission denied",
		Suggestion: "System services need root. Enable settings.use_sudo or run as root.",
	}
)

// --- Constructor Functions ---

// NewSystemctlNotFoundError creates a new ErrSystemctlNotFound error with an optional cause.
func NewSystemctlNotFoundError(cause error) *AppError {
	return &AppError{
		Code:       ErrSystemctlNotFound.Code,
		Message:    ErrSystemctlNotFound.Message,
		Suggestion: ErrSystemctlNotFound.Suggestion,
		Cause:      cause,
	}
}

// NewServiceNotFoundError creates a new ErrServiceNotFound error with service details.
func NewServiceNotFoundError(serviceName string, cause error) *AppError {
	return &AppError{
		Code:       ErrServiceNotFound.Code,
		Message:    fmt.Sprintf("Service %q not found", serviceName),
		Suggestion: ErrServiceNotFound.Suggestion,
		Cause:      cause,
	}
}

// NewServiceFailedError creates a new ErrServiceFailed error with operation details.
// An empty serviceName is used for host-wide operations such as listing or daemon-reload.
func NewServiceFailedError(operation string, serviceName string, cause error) *AppError {
	msg := fmt.Sprintf("Failed to %s service %q", operation, serviceName)
	if serviceName == "" {
		msg = fmt.Sprintf("Failed to %s", operation)
	}
	return &AppError{
		Code:       ErrServiceFailed.Code,
		Message:    msg,
		Suggestion: ErrServiceFailed.Suggestion,
		Cause:      cause,
	}
}

// NewUnexpectedOutputError creates a new ErrUnexpectedOutput error for a single line.
func NewUnexpectedOutputError(source string, line string) *AppError {
	return &AppError{
		Code:       ErrUnexpectedOutput.Code,
		Message:    fmt.Sprintf("Unexpected %s output: %q", source, line),
		Suggestion: ErrUnexpectedOutput.Suggestion,
	}
}

// NewStatePersistError creates a new ErrStatePersist error with the file path.
func NewStatePersistError(path string, cause error) *AppError {
	return &AppError{
		Code:       ErrStatePersist.Code,
		Message:    fmt.Sprintf("Failed to save favorites to %s", path),
		Suggestion: ErrStatePersist.Suggestion,
		Cause:      cause,
	}
}

// NewInvalidServiceNameError creates a new ErrInvalidServiceName error with the rejected name.
func NewInvalidServiceNameError(name string) *AppError {
	return &AppError{
		Code:       ErrInvalidServiceName.Code,
		Message:    fmt.Sprintf("Invalid service name %q", name),
		Suggestion: ErrInvalidServiceName.Suggestion,
	}
}

// NewConfigInvalidError creates a new ErrConfigInvalid error with validation details.
func NewConfigInvalidError(details string, cause error) *AppError {
	return &AppError{
		Code:       ErrConfigInvalid.Code,
		Message:    fmt.Sprintf("Configuration is invalid: %s", details),
		Suggestion: ErrConfigInvalid.Suggestion,
		Cause:      cause,
	}
}

// NewPermissionDeniedError creates a new ErrPermissionDenied error with operation details.
func NewPermissionDeniedError(operation string, resource string, cause error) *AppError {
	return &AppError{
		Code:       ErrPermissionDenied.Code,
		Message:    fmt.Sprintf("Permission denied for %s on %s", operation, resource),
		Suggestion: ErrPermissionDenied.Suggestion,
		Cause:      cause,
	}
}

// --- Helper Functions ---

// IsAppError checks if an error is an AppError type.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError attempts to extract an AppError from an error.
// Returns the AppError if found, or nil otherwise.
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return nil
}

// Wrap wraps an existing error with additional context.
// If the error is already an AppError, it returns a new AppError with the same code
// but with the additional message context.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:       appErr.Code,
			Message:    message + ": " + appErr.Message,
			Suggestion: appErr.Suggestion,
			Cause:      appErr.Cause,
		}
	}

	return &AppError{
		Code:       "GEN_001",
		Message:    message,
		Suggestion: "Check the error details and try again.",
		Cause:      err,
	}
}

// FormatErrorForTUI formats any error for display in the TUI.
// If the error is an AppError, it uses FormatForTUI(). Otherwise, it provides
// a generic formatted output.
func FormatErrorForTUI(err error) string {
	if err == nil {
		return ""
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.FormatForTUI()
	}

	// Generic error formatting
	return fmt.Sprintf("⚠ %s\n\nAn unexpected error occurred. Check the logs for more details.", err.Error())
}
