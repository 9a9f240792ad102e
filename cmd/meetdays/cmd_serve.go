package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"meetdays/internal/backing"
	appLog "meetdays/internal/log"
	"meetdays/internal/web"
)

func serveCmd(a *app) *cobra.Command {
	var (
		listen string
		debug  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync edge service",
		Long: `Serve the /dates resource backed by the configured store
(github, gcs or memory). PUT requires the x-sync-key header to match
server.sync_key (or SYNC_KEY); without a key every write is rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Server.Listen = listen
			}
			if err := a.cfg.ValidateServer(); err != nil {
				return err
			}
			if a.cfg.Server.SyncKey == "" {
				appLog.Warn("no sync key configured; all writes will be rejected")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := backing.New(ctx, a.cfg)
			if err != nil {
				return err
			}
			if c, ok := store.(io.Closer); ok {
				defer c.Close()
			}

			appLog.Info("effective config",
				"listen", a.cfg.Server.Listen,
				"backend", a.cfg.Server.Backend,
				"file_path", a.cfg.Server.FilePath,
				"branch", a.cfg.Server.Branch,
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return web.StartServer(gctx, a.cfg.Server, store, debug)
			})
			g.Go(func() error {
				<-gctx.Done()
				if ctx.Err() != nil {
					appLog.Info("signal received, shutting down")
				}
				return nil
			})
			if err := g.Wait(); err != nil && err != context.Canceled {
				return err
			}
			appLog.Info("meetdays serve exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log every request")
	return cmd
}
