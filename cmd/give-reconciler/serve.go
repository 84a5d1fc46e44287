package main

import (
	"github.com/spf13/cobra"

	giveapp "github.com/Chriskfigures777/give-app-sub003"
	"github.com/Chriskfigures777/give-app-sub003/adapters/gologger"
	"github.com/Chriskfigures777/give-app-sub003/httpapi"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook endpoint, health probe, and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			extra := map[string]any{}
			if cmd.Flags().Changed("addr") {
				extra["http"] = map[string]any{"addr": addr}
			}
			cfg, err := root.load(ctx, cmd, extra)
			if err != nil {
				return err
			}
			format := ""
			if !cmd.Flags().Changed("log-format") {
				format = gologger.FormatJSON
			}
			provider, _ := root.logger(cfg.ServiceName, format)

			rt, err := buildRuntime(cfg, provider, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.runWorker(ctx)

			server := httpapi.NewServer(httpapi.Options{
				WebhookPath: cfg.Webhook.Path,
				Processor:   giveapp.CommandProcessor{},
				Donations:   giveapp.CommandDonationLookup{},
				Gatherer:    rt.registry,
				Observer:    rt.observer,
			})
			return server.Run(ctx, cfg.HTTP.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
