package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtg01100/systemctl-manager/internal/actions"
	"github.com/dtg01100/systemctl-manager/internal/inventory"
	"github.com/dtg01100/systemctl-manager/internal/models"
	"github.com/dtg01100/systemctl-manager/internal/search"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
	"github.com/dtg01100/systemctl-manager/internal/view"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List services, favorites first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show service status",
	Long: `Show detailed status for a service.

The name can be given with or without the .service suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show service logs",
	Long: `Show journal logs for a service.

With --follow the journal is streamed until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Open a service's unit file in your editor",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Print a unit file template for a new service",
	Long: `Print the default unit file for a new service, or write it with --output.

Names may contain lowercase letters, digits and hyphens.`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the systemd manager configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()
		return notify(cmd.OutOrStdout(), e.dispatcher().ReloadDaemon(cmd.Context()))
	},
}

var (
	listSearch string
	logsLines  int
	logsFollow bool
	newOutput  string
)

// actionCommand builds start/stop/restart/toggle-enabled.
func actionCommand(use, short string, act func(d *actions.Dispatcher, cmd *cobra.Command, name string) actions.Notification) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()
			return notify(cmd.OutOrStdout(), act(e.dispatcher(), cmd, args[0]))
		},
	}
}

func init() {
	rootCmd.AddCommand(listCmd, statusCmd, logsCmd, editCmd, newCmd, reloadCmd)
	rootCmd.AddCommand(
		actionCommand("start", "Start a service", func(d *actions.Dispatcher, cmd *cobra.Command, name string) actions.Notification {
			return d.Start(cmd.Context(), name)
		}),
		actionCommand("stop", "Stop a service", func(d *actions.Dispatcher, cmd *cobra.Command, name string) actions.Notification {
			return d.Stop(cmd.Context(), name)
		}),
		actionCommand("restart", "Restart a service", func(d *actions.Dispatcher, cmd *cobra.Command, name string) actions.Notification {
			return d.Restart(cmd.Context(), name)
		}),
		actionCommand("toggle-enabled", "Enable a disabled service or disable an enabled one", func(d *actions.Dispatcher, cmd *cobra.Command, name string) actions.Notification {
			return d.ToggleEnabled(cmd.Context(), name)
		}),
	)

	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "only show services whose name or description contains this text")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 0, "number of lines to show (default from settings.log_lines)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	newCmd.Flags().StringVarP(&newOutput, "output", "o", "", "write the unit to this file instead of stdout")
}

// listEntry is the JSON shape of a list row.
type listEntry struct {
	models.ServiceRecord
	Favorite bool `json:"favorite"`
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	favs, err := e.favorites()
	if err != nil {
		return err
	}

	fetcher := inventory.NewFetcher(e.manager, e.log, e.cfg.Settings.StatusConcurrency)
	services, err := fetcher.Fetch(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get services list: %w", err)
	}

	rows := view.Compose(services, favs.Ordered(), search.New(listSearch))
	out := cmd.OutOrStdout()

	if outputJSON {
		entries := make([]listEntry, 0, len(rows))
		for _, r := range view.Services(rows) {
			entries = append(entries, listEntry{ServiceRecord: r.Service, Favorite: r.Favorite})
		}
		return printJSON(out, entries)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, "No services found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tDESCRIPTION")
	for _, r := range rows {
		switch r := r.(type) {
		case view.SeparatorRow:
			fmt.Fprintf(w, "%s\t\t\n", r.Label)
		case view.ServiceRow:
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Label, r.Description, r.Service.Description)
		}
	}
	return w.Flush()
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	status, err := e.manager.GetDetailedStatus(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if outputJSON {
		return printJSON(cmd.OutOrStdout(), status)
	}

	printServiceStatus(cmd, status)
	return nil
}

func printServiceStatus(cmd *cobra.Command, status *models.ServiceStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name: %s\n", status.Name)
	if status.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", status.Description)
	}
	if status.UnitFile != "" {
		fmt.Fprintf(out, "Unit File: %s\n", status.UnitFile)
	}
	fmt.Fprintf(out, "Load State: %s\n", status.LoadState)
	fmt.Fprintf(out, "Active State: %s\n", status.ActiveState)
	fmt.Fprintf(out, "Sub State: %s\n", status.SubState)
	fmt.Fprintf(out, "Enabled: %v\n", status.Enabled)

	if status.MainPID > 0 {
		fmt.Fprintf(out, "Main PID: %d\n", status.MainPID)
	}

	if status.ExitCode > 0 {
		fmt.Fprintf(out, "Exit Code: %d\n", status.ExitCode)
	}

	if !status.ActivatedAt.IsZero() {
		fmt.Fprintf(out, "Activated: %s\n", status.ActivatedAt.Format(time.RFC3339))
	}

	if !status.InactiveAt.IsZero() {
		fmt.Fprintf(out, "Inactive: %s\n", status.InactiveAt.Format(time.RFC3339))
	}
}

func runLogs(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	name := args[0]
	if logsFollow {
		return runInteractive(e.dispatcher().FollowLogs(name))
	}

	lines := logsLines
	if lines <= 0 {
		lines = e.cfg.Settings.LogLines
	}

	logs, err := e.manager.GetLogs(cmd.Context(), name, lines)
	if err != nil {
		return fmt.Errorf("failed to get logs: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), logs)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	editor, n := e.dispatcher().OpenConfig(cmd.Context(), args[0])
	if n.IsError() {
		return notify(cmd.OutOrStdout(), n)
	}
	return runInteractive(editor)
}

func runNew(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	content, err := e.dispatcher().NewServiceTemplate(args[0])
	if err != nil {
		return err
	}

	if newOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}

	gen := systemd.NewGeneratorInDir(filepath.Dir(newOutput))
	if err := gen.WriteUnitFile(filepath.Base(newOutput), content); err != nil {
		return fmt.Errorf("failed to write %s: %w", newOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", newOutput)
	return nil
}
