package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chriskfigures777/give-app-sub003/adapters/gocommand"
	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/webhooks"
)

func newReplayCommand(root *rootOptions) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Sign a captured event payload and push it through the delivery path",
		Long: `Replay reads a captured event body, signs it with the first configured
webhook secret, and processes it exactly as the HTTP endpoint would.

Examples:
  give-reconciler replay --file evt_123.json
  give-reconciler replay --file evt_123.json --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read event: %w", err)
			}
			cfg, err := root.load(ctx, cmd, nil)
			if err != nil {
				return err
			}
			secret := firstSecret(cfg.Webhook.Secrets)
			if secret == "" {
				return fmt.Errorf("webhook.secrets requires at least one secret to sign the replay")
			}
			provider, _ := root.logger(cfg.ServiceName, "")
			rt, err := buildRuntime(cfg, provider, runtimeOptions{dryRun: dryRun})
			if err != nil {
				return err
			}
			defer rt.Close()

			result, procErr := gocommand.ProcessDelivery(ctx, core.Delivery{
				Body:      body,
				Signature: webhooks.SignPayload(body, secret, time.Now()),
			})
			rt.drain(ctx)
			if err := writeJSON(cmd, result); err != nil {
				return err
			}
			return procErr
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "captured event JSON")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "process against an in-memory store and scripted processor")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func firstSecret(secrets []string) string {
	for _, secret := range secrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			return secret
		}
	}
	return ""
}

func writeJSON(cmd *cobra.Command, value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return err
}
