// Package main provides the inquiry binary entry point.
// Inquiry is a research workflow copilot: it walks a project through a
// fixed ten-stage research workflow with model-driven stage pipelines.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	// Register LLM providers via init()
	_ "github.com/mosaicsci/inquiry/llm/providers"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/commands"
	"github.com/mosaicsci/inquiry/config"
)

const (
	Version = "0.1.0"
	appName = "inquiry"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Ctrl-C cancels the context so a long pipeline run stops cleanly
	// between model calls instead of being killed mid-write.
	ctx, stop := signalContext()
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		watch      bool
	)

	var app *App

	root := &cobra.Command{
		Use:          appName,
		Short:        "Research workflow copilot",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)

			cfg, err := loadConfig(configPath, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			app = NewApp(cfg, logger)
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}

			if watch {
				if path := configFilePath(configPath, logger); path != "" {
					watcher, err := config.NewWatcher(path, logger, func(updated *config.Config) {
						logger.Info("configuration changed; restart to apply gateway changes")
					})
					if err != nil {
						logger.Warn("config watcher unavailable", "error", err)
					} else if err := watcher.Start(cmd.Context()); err != nil {
						logger.Warn("config watcher failed to start", "error", err)
					}
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Shutdown()
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&watch, "watch-config", false, "Reload config file on change")

	// Subcommands share the wired environment via a lazy lookup, since the
	// App only exists after PersistentPreRunE.
	env := &commands.Env{}
	inner := commands.NewRootCommand(env)
	for _, sub := range inner.Commands() {
		wrapped := sub
		prev := wrapped.PreRunE
		wrapped.PreRunE = func(cmd *cobra.Command, args []string) error {
			*env = *app.Env()
			if prev != nil {
				return prev(cmd, args)
			}
			return nil
		}
		root.AddCommand(wrapped)
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return root
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}

// configFilePath resolves the path the watcher should observe.
func configFilePath(configPath string, logger *slog.Logger) string {
	if configPath != "" {
		return configPath
	}
	return config.NewLoader(logger).FindProjectConfig()
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, letting a
// long pipeline run stop between model calls.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
