package main

import (
	"context"
	"io"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/spf13/cobra"

	"github.com/Chriskfigures777/give-app-sub003/adapters/gologger"
	"github.com/Chriskfigures777/give-app-sub003/config"
	"github.com/Chriskfigures777/give-app-sub003/core"
)

type rootOptions struct {
	out        io.Writer
	configFile string
	envFiles   []string
	logLevel   string
	logFormat  string
	driver     string
	dsn        string
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}
	cmd := &cobra.Command{
		Use:           "give-reconciler",
		Short:         "Reconcile payment processor events into the donation ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, ".env files read under the process environment")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level")
	flags.StringVar(&opts.logFormat, "log-format", gologger.FormatText, "log format (text|json)")
	flags.StringVar(&opts.driver, "database-driver", "", "database driver (postgres|sqlite3)")
	flags.StringVar(&opts.dsn, "database-dsn", "", "database DSN")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newReplayCommand(opts),
		newDonationCommand(opts),
	)
	return cmd
}

// load resolves config from file, environment, and flags the user set.
func (o *rootOptions) load(ctx context.Context, cmd *cobra.Command, extra map[string]any) (core.Config, error) {
	flags := map[string]any{}
	database := map[string]any{}
	if cmd.Flags().Changed("database-driver") {
		database["driver"] = o.driver
	}
	if cmd.Flags().Changed("database-dsn") {
		database["dsn"] = o.dsn
	}
	if len(database) > 0 {
		flags["database"] = database
	}
	for key, value := range extra {
		flags[key] = value
	}
	return config.Load(ctx, config.Sources{
		File:   o.configFile,
		DotEnv: o.envFiles,
		Flags:  flags,
	})
}

func (o *rootOptions) logger(name string, format string) (*gologger.Provider, glog.Logger) {
	if format == "" {
		format = o.logFormat
	}
	provider := gologger.NewProvider(gologger.NewLogrus(gologger.Options{
		Level:  o.logLevel,
		Format: format,
		Output: o.out,
	}))
	return provider, provider.GetLogger(name)
}
