package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/burugo/record"
)

// appKey stores the App in the command context.
type appKey struct{}

// newRootCmd returns the root command and a function releasing whatever
// the command opened. Call it after Execute returns.
func newRootCmd() (*cobra.Command, func()) {
	var (
		cfgFile string
		cleanup func()
	)

	rootCmd := &cobra.Command{
		Use:           "recordctl",
		Short:         "Run statements against a record database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := record.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			app, appCleanup, err := initializeApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			cleanup = appCleanup
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML)")
	flags.String("driver", record.DefaultDriver, "database/sql driver: sqlite3 or sqlite")
	flags.String("dsn", "", "data source name, e.g. a SQLite file path or :memory:")
	flags.Int("pool-size", record.DefaultPoolSize, "idle connections kept open")
	flags.String("cache-backend", record.CacheBackendMemory, "read cache backend: memory or redis")
	flags.String("log-level", record.DefaultLogLevel, "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newQueryCmd(),
		newExecCmd(),
		newCreateTableCmd(),
		newDemoCmd(),
	)
	closeApp := func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}
	return rootCmd, closeApp
}

func appFrom(cmd *cobra.Command) (*App, error) {
	app, ok := cmd.Context().Value(appKey{}).(*App)
	if !ok || app == nil {
		return nil, errors.New("application not initialized")
	}
	return app, nil
}
