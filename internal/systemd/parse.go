package systemd

import (
	"strings"
)

// UnitEntry is one service line from list-units.
type UnitEntry struct {
	Name        string
	Description string
}

const statusBullet = "●"

// parseUnitList parses `systemctl list-units` output. Lines that mention a
// .service unit but carry fewer than three fields are returned as skipped.
func parseUnitList(output string) (units []UnitEntry, skipped []string) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if fields[0] == statusBullet || fields[0] == "*" {
			fields = fields[1:]
		}

		if !strings.Contains(line, ".service") || len(fields) < 3 || !strings.HasSuffix(fields[0], ".service") {
			skipped = append(skipped, line)
			continue
		}

		entry := UnitEntry{Name: strings.TrimSuffix(fields[0], ".service")}
		if len(fields) > 4 {
			entry.Description = strings.Join(fields[4:], " ")
		}
		units = append(units, entry)
	}
	return units, skipped
}

// parseEnabledList parses `systemctl list-unit-files --state=enabled` output.
func parseEnabledList(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.HasSuffix(fields[0], ".service") {
			continue
		}
		names = append(names, strings.TrimSuffix(fields[0], ".service"))
	}
	return names
}

// parseProperties parses KEY=VALUE lines from `systemctl show`.
func parseProperties(output string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "=", 2)
		if len(parts) != 2 {
			continue
		}
		props[parts[0]] = parts[1]
	}
	return props
}

func firstLine(output []byte) string {
	s := strings.TrimSpace(string(output))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
