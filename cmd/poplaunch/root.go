package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chess10kp/poplaunch/internal/config"
	"github.com/chess10kp/poplaunch/internal/core"
	"github.com/chess10kp/poplaunch/internal/launcher"
)

// exitConfig is returned for unusable flags or configuration.
const exitConfig = 2

const defaultConfigPath = "~/.config/poplaunch/config.toml"

var pidFile = filepath.Join(os.TempDir(), "poplaunch.pid")

// exitError carries a process exit code out of the command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

var (
	configPath  string
	themePath   string
	scale       float64
	initialMode string
)

var rootCmd = &cobra.Command{
	Use:   "poplaunch",
	Short: "GTK front end for the pop-launcher backend",
	Long: `poplaunch - a keyboard driven application launcher
  - type to search applications through pop-launcher
  - plugin prefixes and web shortcuts switch modes
  - an empty box browses recently launched applications`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLauncher,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the TOML configuration file")
	rootCmd.Flags().StringVarP(&themePath, "theme", "t", "", "CSS file replacing the built-in styles")
	rootCmd.Flags().Float64VarP(&scale, "scale", "s", 0, "UI scale factor (overrides window.scale)")
	rootCmd.Flags().StringVarP(&initialMode, "mode", "m", "", "plugin or web shortcut to start in")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &exitError{code: exitConfig, err: err}
	})
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return launcher.ExitOK
	}

	fmt.Fprintf(os.Stderr, "poplaunch: %v\n", err)
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	// cobra reports unknown arguments without going through the flag
	// error hook
	return exitConfig
}

func runLauncher(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Failed to load config, using defaults: %v", err)
		cfg = config.Default()
	}

	if cmd.Flags().Changed("scale") {
		cfg.Window.Scale = scale
	}
	if err := cfg.Validate(); err != nil {
		return &exitError{code: exitConfig, err: fmt.Errorf("invalid configuration: %w", err)}
	}

	if logFile := openLogFile(cfg.Logging.File); logFile != nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	if err := ensureSingleInstance(); err != nil {
		log.Printf("Failed to ensure single instance: %v", err)
	}
	defer cleanup()

	app, err := core.NewApp(cfg, core.Options{
		InitialMode: initialMode,
		ThemePath:   config.ExpandPath(themePath),
		Scale:       cfg.Window.Scale,
	})
	if err != nil {
		return &exitError{code: launcher.ExitFatal, err: err}
	}

	if code := app.Run(); code != launcher.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func openLogFile(path string) *os.File {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return f
}

// ensureSingleInstance stops a launcher that is still open and records
// this process as the running one.
func ensureSingleInstance() error {
	if data, err := os.ReadFile(pidFile); err == nil {
		if pid, err := strconv.Atoi(string(data)); err == nil && pid != os.Getpid() {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					log.Printf("Replacing running instance (pid %d)", pid)
					_ = process.Signal(syscall.SIGTERM)
				}
			}
		}
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func cleanup() {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}
	// a newer instance may already own the file
	if pid, err := strconv.Atoi(string(data)); err == nil && pid == os.Getpid() {
		os.Remove(pidFile)
	}
}
