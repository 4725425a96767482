package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtg01100/systemctl-manager/internal/systemd"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that systemd can be managed from here",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := loadLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	results := loadPreflight(cmd, cfg, log)

	if outputJSON {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), systemd.FormatResults(results))
	}

	if systemd.HasCriticalFailure(results) {
		return fmt.Errorf("critical pre-flight checks failed")
	}
	return nil
}
