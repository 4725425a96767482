package systemd

import (
	"os"
	"path/filepath"
)

// DraftDir returns a scratch directory for unit files being edited
// before they are installed.
func DraftDir() string {
	return filepath.Join(os.TempDir(), "systemctl-manager")
}
