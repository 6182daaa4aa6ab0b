package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/pkg/di"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "accountsd",
		Short:        "Account directory service",
		Long:         `Serves user accounts over HTTP with a look-aside cache and a fuzzy search index kept in step with the database.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./accounts.yaml if present)")

	open := func(ctx context.Context) (*di.Container, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return di.NewContainer(ctx, cfg)
	}

	root.AddCommand(newServeCmd(open), newBootstrapCmd(open), newReindexCmd(open))
	return root
}

type openFunc func(ctx context.Context) (*di.Container, error)

// handleSignals returns a context cancelled on SIGINT or SIGTERM.
func handleSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
