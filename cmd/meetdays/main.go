package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"meetdays/internal/config"
	appLog "meetdays/internal/log"
	"meetdays/internal/remote"
	"meetdays/internal/stats"
	"meetdays/internal/store"
)

var Version = "0.1.0-dev"

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	logLevel   string
	envFile    string

	cfg      *config.Config
	closeLog func() error
	now      func() time.Time
}

func main() {
	root := newRootCmd(&app{now: time.Now})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	if a.now == nil {
		a.now = time.Now
	}

	rootCmd := &cobra.Command{
		Use:           "meetdays",
		Short:         "Track meet days, see streaks and ratios, and sync them",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultConfigPath, "Path to config file (.yaml or .toml)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	pf.StringVar(&a.envFile, "env-file", ".env", "Optional .env file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(removeCmd(a))
	rootCmd.AddCommand(syncCmd(a))
	rootCmd.AddCommand(exportCmd(a))
	rootCmd.AddCommand(importCmd(a))

	return rootCmd
}

// setup loads .env, the config file and the environment, in that order of
// increasing precedence, then configures logging.
func (a *app) setup() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(cfg, nil)
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		cfg.Normalize()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.closeLog = appLog.Setup(appLog.Options{
		Level: appLog.ParseLevel(cfg.Log.Level),
		File:  cfg.Log.File,
		JSON:  cfg.Log.JSON,
	})
	appLog.Debug("config loaded", "path", a.configPath, "store_driver", cfg.Store.Driver, "sync_enabled", cfg.Sync.Endpoint != "")
	return nil
}

// openStore opens the local store. Callers must close the returned closer.
func (a *app) openStore() (*store.Store, io.Closer, error) {
	kv, closer, err := store.Open(a.cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	return store.New(kv), closer, nil
}

func (a *app) syncClient() *remote.Client {
	return remote.NewClient(remote.ConfigFrom(a.cfg.Sync))
}

func (a *app) engine() *stats.Engine {
	return stats.New(a.now)
}
