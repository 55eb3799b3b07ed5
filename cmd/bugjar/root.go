package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/bugjar/internal/config"
	"github.com/aretw0/bugjar/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bugjar",
	Short: "Bugjar drives a line debugger from the console, HTTP, MCP or Lua",
	Long: `Bugjar connects to a debuggee over a socket or Redis Pub/Sub, keeps the
breakpoint table in sync with it and persists breakpoints between runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Path to the bugjar config file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("session", "", "Override the configured session ID")
}

// setup loads the config named by the persistent flags and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if session, _ := cmd.Flags().GetString("session"); session != "" {
		cfg.Session = session
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level), nil
}
