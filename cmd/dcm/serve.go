package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dcmio/dcm/internal/rpcserver"
)

const shutdownTimeout = 10 * time.Second

func newHTTPServerFromApp(a *app) *rpcserver.HTTPServer {
	return rpcserver.NewHTTPServer(a.server, a.cfg.Transport.CORSOrigins)
}

func newServeCmd(loadApp func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the coordination service, listening for JSON-RPC requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return runServe(cmd, a)
		},
	}
}

func runServe(cmd *cobra.Command, a *app) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("starting dcm", "version", version, "transport", a.cfg.Transport.Mode)

	a.startMaintenance(ctx)

	switch a.cfg.Transport.Mode {
	case "http":
		return serveHTTP(ctx, a)
	default:
		return a.server.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}
}

func serveHTTP(ctx context.Context, a *app) error {
	httpServer := newHTTPServerFromApp(a)
	addr := a.cfg.Transport.Host + ":" + a.cfg.Transport.Port
	srv := &http.Server{Addr: addr, Handler: httpServer.Handler()}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}
