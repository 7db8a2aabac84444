package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"insights-backend/internal/bootstrap"
	"insights-backend/internal/shared/server"
	"insights-backend/internal/shared/telemetry"
)

const shutdownTimeout = 15 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the idle-session sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != "" {
			cfg.Port = servePort
		}
		app, err := bootstrap.Build(cfg)
		if err != nil {
			return eris.Wrap(err, "bootstrap")
		}
		defer app.Close()

		if err := app.Sweeper.Start(cfg.SweepSchedule); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              server.Addr(cfg.Port),
			Handler:           app.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			app.Sweeper.Stop(shutdownCtx)
			telemetry.Info("server.shutdown", nil)
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default from PORT)")
	rootCmd.AddCommand(serveCmd)
}
