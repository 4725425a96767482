// Package main is the entry point for the systemctl-manager TUI application.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dtg01100/systemctl-manager/internal/cli"
	"github.com/dtg01100/systemctl-manager/internal/config"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
	"github.com/dtg01100/systemctl-manager/internal/tui"
)

var version = "dev"

type Config struct {
	ShowVersion bool
	SkipChecks  bool
	ConfigDir   string
}

type PreflightChecker interface {
	PreflightChecks(ctx context.Context) []systemd.CheckResult
}

// TUIRunner starts the interactive interface.
type TUIRunner interface {
	Run(ctx context.Context, cfg *config.Config, log logger.Logger) error
}

type defaultTUIRunner struct{}

func (d *defaultTUIRunner) Run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	deps, err := tui.BuildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	if deps.Watcher != nil {
		defer func() {
			deps.Watcher.Stop()
			stats := deps.Watcher.GetStats()
			log.Debug("unit watcher stopped",
				logger.Int("events", stats.Events),
				logger.Int("refreshes", stats.Reported),
				logger.Int("errors", stats.Errors))
		}()
	}
	return tui.Run(deps)
}

// cliCommands are the first arguments handled by the command line interface.
var cliCommands = map[string]bool{
	"list":           true,
	"status":         true,
	"start":          true,
	"stop":           true,
	"restart":        true,
	"toggle-enabled": true,
	"reload":         true,
	"logs":           true,
	"edit":           true,
	"new":            true,
	"favorites":      true,
	"fav":            true,
	"config":         true,
	"doctor":         true,
	"help":           true,
	"completion":     true,
	"-h":             true,
	"--help":         true,
	"--json":         true,
	"-j":             true,
}

func isCLIInvocation(args []string) bool {
	return len(args) > 0 && cliCommands[args[0]]
}

func parseFlags(args []string) (*Config, error) {
	fs := flag.NewFlagSet("systemctl-manager", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Print version and exit")
	skipChecks := fs.Bool("skip-checks", false, "Skip pre-flight validation checks")
	configDir := fs.String("config", "", "Custom config directory (overrides XDG_CONFIG_HOME)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	return &Config{
		ShowVersion: *showVersion,
		SkipChecks:  *skipChecks,
		ConfigDir:   *configDir,
	}, nil
}

func printVersion(w io.Writer, v string) {
	fmt.Fprintln(w, v)
}

func handleConfigDir(configDir string) error {
	if configDir == "" {
		return nil
	}

	resolvedDir := configDir
	if fi, err := os.Stat(configDir); err == nil && !fi.IsDir() {
		resolvedDir = filepath.Dir(configDir)
	}

	return os.Setenv("XDG_CONFIG_HOME", resolvedDir)
}

func runPreflightChecksTo(ctx context.Context, w io.Writer, checker PreflightChecker) error {
	fmt.Fprintln(w, "Running pre-flight checks...")
	fmt.Fprintln(w)

	results := checker.PreflightChecks(ctx)

	fmt.Fprint(w, systemd.FormatResults(results))
	fmt.Fprintln(w)

	if systemd.HasCriticalFailure(results) {
		fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════════╗")
		fmt.Fprintln(w, "║  Critical pre-flight check(s) failed. Cannot start application.  ║")
		fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════════╝")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Please fix the issues above and try again.")
		fmt.Fprintln(w, "You can skip these checks with --skip-checks (not recommended).")
		return fmt.Errorf("critical pre-flight checks failed")
	}

	if !systemd.AllPassed(results) {
		fmt.Fprintln(w, "⚠ Some optional checks failed. The application will start, but some")
		fmt.Fprintln(w, "  features may not work correctly.")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Pre-flight checks completed. Starting application...")
	fmt.Fprintln(w)

	return nil
}

type AppDeps struct {
	Stdout       io.Writer
	Stderr       io.Writer
	ParseFlags   func(args []string) (*Config, error)
	LoadConfig   func() (*config.Config, error)
	NewLogger    func(cfg *config.Config) (logger.Logger, error)
	NewChecker   func(cfg *config.Config, log logger.Logger) PreflightChecker
	NewTUIRunner func() TUIRunner
}

func DefaultAppDeps(stdout, stderr io.Writer) *AppDeps {
	return &AppDeps{
		Stdout:     stdout,
		Stderr:     stderr,
		ParseFlags: parseFlags,
		LoadConfig: config.Load,
		NewLogger: func(cfg *config.Config) (logger.Logger, error) {
			opts, err := cfg.LoggerOptions()
			if err != nil {
				return nil, err
			}
			return logger.New(opts)
		},
		NewChecker: func(cfg *config.Config, log logger.Logger) PreflightChecker {
			return systemd.NewManager(systemd.Options{
				UserScope: cfg.IsUserScope(),
				UseSudo:   cfg.Settings.UseSudo,
				Timeout:   cfg.Settings.CommandTimeout,
				Logger:    log,
			})
		},
		NewTUIRunner: func() TUIRunner {
			return &defaultTUIRunner{}
		},
	}
}

func runMainWithDeps(ctx context.Context, args []string, deps *AppDeps) int {
	flags, err := deps.ParseFlags(args)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Error parsing flags: %v\n", err)
		return 2
	}

	if flags.ShowVersion {
		printVersion(deps.Stdout, version)
		return 0
	}

	if err := handleConfigDir(flags.ConfigDir); err != nil {
		fmt.Fprintf(deps.Stderr, "Error handling config directory: %v\n", err)
		return 1
	}

	cfg, err := deps.LoadConfig()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	log, err := deps.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "Error setting up logging: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if !flags.SkipChecks {
		if err := runPreflightChecksTo(ctx, deps.Stdout, deps.NewChecker(cfg, log)); err != nil {
			log.Error("pre-flight checks failed", logger.Error(err))
			return 1
		}
	}

	tui.Version = version
	log.Info("starting interactive interface", logger.String("version", version), logger.String("scope", cfg.Settings.Scope))

	if err := deps.NewTUIRunner().Run(ctx, cfg, log); err != nil {
		log.Error("interactive interface exited", logger.Error(err))
		fmt.Fprintf(deps.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func runMain(args []string, stdout, stderr io.Writer) int {
	return runMainWithDeps(context.Background(), args, DefaultAppDeps(stdout, stderr))
}

func main() {
	args := os.Args[1:]

	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			printVersion(os.Stdout, version)
			os.Exit(0)
		}
	}

	if isCLIInvocation(args) {
		cli.SetVersion(version)
		if err := cli.Execute(); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Otherwise, TUI mode (--skip-checks, --config)
	os.Exit(runMain(args, os.Stdout, os.Stderr))
}
