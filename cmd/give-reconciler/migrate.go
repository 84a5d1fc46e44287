package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := root.load(ctx, cmd, nil)
			if err != nil {
				return err
			}
			_, logger := root.logger(cfg.ServiceName, "")
			client, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			reg, err := migrate(ctx, client, cfg.Database.Driver)
			if err != nil {
				return err
			}
			dialect := migrationDialect(cfg.Database.Driver)
			versions := reg.Registered(dialect)
			logger.Info("migrations applied", "source", reg.SourceLabel, "dialect", dialect, "versions", len(versions))
			for _, version := range versions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dialect, version)
			}
			return nil
		},
	}
}
