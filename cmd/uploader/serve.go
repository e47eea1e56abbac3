package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the local HTTP service for editor integrations",
		Action: func(c *cli.Context) error {
			application, logger, err := setup(c)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if !application.Activate() {
				logger.Warn("serving without paste upload until settings are complete")
			}

			srv := &http.Server{
				Addr:              application.Addr(),
				Handler:           application.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			eg, ctx := errgroup.WithContext(c.Context)
			eg.Go(func() error {
				logger.Info("server starting", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			eg.Go(func() error {
				defer func() {
					logger.Info("shutting down server...")
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						logger.Error("forced shutdown", zap.Error(err))
					}
					application.Shutdown()
				}()
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-quit:
					return nil
				}
			})

			if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("server exited")
			return nil
		},
	}
}
