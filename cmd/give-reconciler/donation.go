package main

import (
	"github.com/spf13/cobra"

	"github.com/Chriskfigures777/give-app-sub003/adapters/gocommand"
	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/query"
)

func newDonationCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "donation",
		Short: "Inspect and repair donation ledger rows",
	}
	cmd.AddCommand(
		newDonationShowCommand(root),
		newDonationUnreconciledCommand(root),
		newDonationReconcileCommand(root),
	)
	return cmd
}

// withRuntime loads config and runs fn against a database-backed runtime.
func withRuntime(root *rootOptions, cmd *cobra.Command, fn func(rt *runtime) error) error {
	cfg, err := root.load(cmd.Context(), cmd, nil)
	if err != nil {
		return err
	}
	provider, _ := root.logger(cfg.ServiceName, "")
	rt, err := buildRuntime(cfg, provider, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func newDonationShowCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <payment-id>",
		Short: "Print a donation with its campaign and fund request totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(root, cmd, func(*runtime) error {
				view, err := gocommand.Query[query.GetDonationMessage, query.DonationView](cmd.Context(), query.GetDonationMessage{PaymentID: args[0]})
				if err != nil {
					return err
				}
				return writeJSON(cmd, view)
			})
		},
	}
}

func newDonationUnreconciledCommand(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "unreconciled",
		Short: "List succeeded donations whose totals were never applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(root, cmd, func(*runtime) error {
				rows, err := gocommand.Query[query.ListUnreconciledMessage, []core.Donation](cmd.Context(), query.ListUnreconciledMessage{Limit: limit})
				if err != nil {
					return err
				}
				return writeJSON(cmd, rows)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows")
	return cmd
}

func newDonationReconcileCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <payment-id>",
		Short: "Apply campaign and fund request totals for a recorded donation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(root, cmd, func(*runtime) error {
				result, err := gocommand.ReconcileDonation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			})
		},
	}
}
