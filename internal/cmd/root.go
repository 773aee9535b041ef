// Package cmd implements the focusassist command line.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/sadopc/focusassist/internal/config"
	"github.com/sadopc/focusassist/internal/logging"
	"github.com/sadopc/focusassist/internal/store"
	"github.com/sadopc/focusassist/internal/tui"
)

// ErrNoTerminal is returned when the interactive UI is started without a TTY.
var ErrNoTerminal = errors.New("the interactive timer needs a terminal (try 'focusassist run')")

var rootCmd = &cobra.Command{
	Use:   "focusassist",
	Short: "Pomodoro timer with focus check-ins",
	Long: `focusassist runs work and break intervals over a queue of tasks and
periodically checks whether you are still focused.

Without a subcommand it opens the interactive timer.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runTUI,
}

var (
	cfgFile string

	appConfig *config.Config
	appLogger *logging.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/focusassist/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path (overrides store.path)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	defer func() { appLogger.Close() }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func setup(cmd *cobra.Command, args []string) error {
	if err := config.Init(cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return err
	}
	appConfig, appLogger = cfg, logger
	slog.SetDefault(logger.Logger)
	logger.Debug("configuration loaded", "command", cmd.CommandPath(), "config", viper.ConfigFileUsed(), "db", cfg.Store.Path)
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.New(appConfig.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrNoTerminal
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	return tui.Run(st, tui.Options{
		PollInterval: appConfig.Timer.PollInterval,
		SkipDisplay:  appConfig.Timer.SkipDisplay,
		Demo:         appConfig.Timer.Demo,
		Detectors:    detectors(appConfig.Focus),
		Focus:        dispatcherOptions(appConfig.Focus),
		Logger:       appLogger.Logger,
	})
}
