package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/dtg01100/systemctl-manager/internal/actions"
	"github.com/dtg01100/systemctl-manager/internal/config"
	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/favorites"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/state"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
)

var (
	cfgFile     string
	outputJSON  bool
	showVersion bool
	cliVersion  = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "systemctl-manager",
	Short: "Browse and control systemd services",
	Long: `systemctl-manager lists systemd services, keeps a pinned list of
favorites, and starts, stops, restarts, enables and disables services
through systemctl.

Run without arguments to open the interactive interface.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config directory (default is $XDG_CONFIG_HOME/systemctl-manager)")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "output in JSON format")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print version and exit")
}

func Execute() error {
	err := rootCmd.Execute()
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Suggestion != "" {
		fmt.Fprintln(rootCmd.ErrOrStderr(), appErr.Suggestion)
	}
	return err
}

func SetVersion(v string) {
	cliVersion = v
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// loadConfig returns the application configuration, using the --config flag
// if provided. This function is injectable for testing purposes.
var loadConfig = func() (*config.Config, error) {
	if cfgFile != "" {
		if err := os.Setenv("XDG_CONFIG_HOME", cfgFile); err != nil {
			return nil, fmt.Errorf("failed to set config directory: %w", err)
		}
	}
	return config.Load()
}

// loadLogger builds the logger for a command.
// This function is injectable for testing purposes.
var loadLogger = func(cfg *config.Config) (logger.Logger, error) {
	opts, err := cfg.LoggerOptions()
	if err != nil {
		return nil, err
	}
	return logger.New(opts)
}

// loadManager returns a systemd manager for the configured scope.
// This function is injectable for testing purposes.
var loadManager = func(cfg *config.Config, log logger.Logger) systemd.ServiceManager {
	return systemd.NewManager(managerOptions(cfg, log))
}

// loadPreflight runs the host checks for the doctor command.
// This function is injectable for testing purposes.
var loadPreflight = func(cmd *cobra.Command, cfg *config.Config, log logger.Logger) []systemd.CheckResult {
	return systemd.NewManager(managerOptions(cfg, log)).PreflightChecks(cmd.Context())
}

// runInteractive runs c attached to the terminal.
// This function is injectable for testing purposes.
var runInteractive = func(c *exec.Cmd) error {
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func managerOptions(cfg *config.Config, log logger.Logger) systemd.Options {
	return systemd.Options{
		UserScope: cfg.IsUserScope(),
		UseSudo:   cfg.Settings.UseSudo,
		Timeout:   cfg.Settings.CommandTimeout,
		Logger:    log,
	}
}

// env bundles what most commands need.
type env struct {
	cfg     *config.Config
	log     logger.Logger
	manager systemd.ServiceManager
}

func setup() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := loadLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return &env{
		cfg:     cfg,
		log:     log,
		manager: loadManager(cfg, log),
	}, nil
}

func (e *env) close() {
	_ = e.log.Sync()
}

func (e *env) dispatcher() *actions.Dispatcher {
	return actions.NewDispatcher(e.manager, e.log, e.cfg.Settings.Editor)
}

// favorites opens and loads the favorites store.
func (e *env) favorites() (*favorites.Store, error) {
	path, err := e.cfg.StateFilePath()
	if err != nil {
		return nil, err
	}
	store := favorites.New(state.Load(path, e.log), path, e.log)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// notify prints a successful notification or turns a failed one into an error.
func notify(w io.Writer, n actions.Notification) error {
	if n.IsError() {
		if n.Err != nil {
			return fmt.Errorf("%s: %w", n.Text, n.Err)
		}
		return fmt.Errorf("%s", n.Text)
	}
	fmt.Fprintln(w, n.Text)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
