package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run bootstrap, then serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := handleSignals(cmd.Context())
			defer cancel()

			c, err := open(ctx)
			if err != nil {
				return err
			}
			cfg := c.Config()
			logger := c.Logger()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if err := c.Close(shutdownCtx); err != nil {
					logger.Error("close failed", zap.Error(err))
				}
			}()

			if cfg.Bootstrap.Enabled {
				report, err := c.Reconciler().Run(ctx)
				if err != nil {
					return err
				}
				logger.Info("bootstrap complete", zap.Any("report", report))
			}
			c.WarmIndex(ctx)

			srv := &http.Server{
				Addr:         cfg.HTTP.Addr,
				Handler:      c.Router(),
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}
}
