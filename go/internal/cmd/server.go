package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/config"
	"github.com/mcdev12/fieldboss/go/internal/gateway"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve the timer store and live changes to remote viewers",
	Long: `gateway serves the timer store over Connect and streams change events
over WebSocket so viewers can run with --store remote --feed ws.`,
	Args: cobra.NoArgs,
	RunE: runGateway,
}

func runGateway(cmd *cobra.Command, args []string) error {
	if err := applyFlags(); err != nil {
		return err
	}
	if cfg.Store.Driver == config.StoreRemote || cfg.Feed.Driver == config.FeedWS {
		return fmt.Errorf("gateway cannot serve from another gateway")
	}
	closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.File, false)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	gatewayService := gateway.NewService(gateway.DefaultConfig(), services.Store, services.Feed, clockwork.NewRealClock())

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	server := gateway.NewHTTPServer(":"+cfg.Gateway.Port, mux)

	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := gatewayService.Start(serviceCtx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("gateway shutdown complete")
	return nil
}
