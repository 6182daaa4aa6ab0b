package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := handleSignals(cmd.Context())
			defer cancel()

			c, err := open(ctx)
			if err != nil {
				return err
			}
			defer c.Close(context.Background())

			n, err := c.Accounts().Reindex(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d accounts\n", n)
			return nil
		},
	}
}
