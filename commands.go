package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *Config
)

var rootCmd = &cobra.Command{
	Use:   DefaultServiceName,
	Short: "Device heartbeat service",
	Long:  `Receives device heartbeats over HTTP and tracks device liveness in a concurrent cache.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cfgFile)
		if err != nil {
			return err
		}
		return initLoggerWrapper(cfg.App.LogLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cfg)
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cfg)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Long:  `Write the default configuration as TOML. An existing file is never overwritten.`,
	Args:  cobra.MaximumNArgs(1),
	// config init must work before any configuration exists
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := DefaultConfigFile
		if len(args) > 0 {
			path = args[0]
		}
		if err := writeDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Exercise the device cache without the HTTP server",
}

// newDemoCommand wraps one demo in a command running against a fresh cache
func newDemoCommand(use, short string, run func(*demo, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := newDeviceCache(cfg)
			if err != nil {
				return err
			}
			d := &demo{cache: cache, log: logger.Named("demo")}
			if err := run(d, cmd.Context()); err != nil {
				return err
			}
			d.log.Info("Demo finished", zap.String("demo", use), zap.Any("stats", cache.Stats()))
			return nil
		},
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.toml)")

	configCmd.AddCommand(configInitCmd)
	demoCmd.AddCommand(
		newDemoCommand("simple", "Add, read, update and remove a handful of devices", (*demo).simple),
		newDemoCommand("collect", "Collect devices by pattern, heartbeat count and age", (*demo).collect),
		newDemoCommand("iterate", "Walk, bulk update and conditionally remove entries", (*demo).iterate),
		newDemoCommand("delete", "Bulk removal by pattern, age and criteria", (*demo).remove),
		newDemoCommand("concurrent", "Producers, updaters and collectors sharing the cache", (*demo).concurrent),
	)
	rootCmd.AddCommand(serveCmd, configCmd, demoCmd)
}
