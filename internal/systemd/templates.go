package systemd

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/pkg/utils"
)

// DefaultServiceTemplate is the skeleton offered for a new service.
const DefaultServiceTemplate = `[Unit]
Description={{.Name}} service
After=network.target

[Service]
Type=simple
User={{.User}}
Group={{.Group}}
WorkingDirectory={{.WorkingDirectory}}
ExecStart={{.ExecStart}}
Restart=always
RestartSec=3

[Install]
WantedBy={{.WantedBy}}
`

// ServiceUnitData contains data for service unit generation.
type ServiceUnitData struct {
	Name             string
	User             string
	Group            string
	WorkingDirectory string
	ExecStart        string
	WantedBy         string
}

// DefaultServiceUnitData fills in the placeholders used for a new unit.
func DefaultServiceUnitData(name string) ServiceUnitData {
	return ServiceUnitData{
		Name:             name,
		User:             "nobody",
		Group:            "nogroup",
		WorkingDirectory: "/",
		ExecStart:        "/usr/local/bin/" + name,
		WantedBy:         "multi-user.target",
	}
}

var serviceNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidateServiceName trims name and checks it against the allowed
// character set. It returns the trimmed name.
func ValidateServiceName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if !serviceNamePattern.MatchString(trimmed) {
		err := apperrors.NewInvalidServiceNameError(trimmed)
		if alt := utils.SanitizeName(trimmed); alt != "" {
			err.Suggestion = fmt.Sprintf("%s Try %q.", err.Suggestion, alt)
		}
		return "", err
	}
	return trimmed, nil
}
