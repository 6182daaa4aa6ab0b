package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newBootstrapCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Reconcile roles, legacy accounts, the administrator and sample data, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := handleSignals(cmd.Context())
			defer cancel()

			c, err := open(ctx)
			if err != nil {
				return err
			}
			defer c.Close(context.Background())

			report, err := c.Reconciler().Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"roles created: %d\nlegacy accounts migrated: %d\nadmin created: %t\nadmin repaired: %t\nsample accounts seeded: %d\n",
				report.RolesCreated, report.Migrated, report.AdminCreated, report.AdminRepaired, report.Seeded)
			return nil
		},
	}
}
