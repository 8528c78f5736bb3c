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
	"github.com/mcdev12/fieldboss/go/internal/feed"
	"github.com/mcdev12/fieldboss/go/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Forward database change notifications to JetStream",
	Long: `relay LISTENs on the timers NOTIFY channel and republishes each change
to the JetStream stream that gateways and --feed nats viewers consume.`,
	Args: cobra.NoArgs,
	RunE: runRelay,
}

var relayHealthAddr string

func init() {
	relayCmd.Flags().StringVar(&relayHealthAddr, "health-addr", ":8082", "address for /health and /metrics (empty disables)")
}

func runRelay(cmd *cobra.Command, args []string) error {
	closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.File, false)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ncfg := natsConfig(cfg)
	nc, js, err := feed.ConnectJetStream(ncfg)
	if err != nil {
		return err
	}
	defer nc.Drain()

	if err := feed.EnsureStream(ctx, js, ncfg); err != nil {
		return err
	}

	pg := feed.DefaultPGConfig()
	pg.DatabaseURL = cfg.Database.DSN()

	clock := clockwork.NewRealClock()
	relay := feed.NewRelay(
		feed.NewPGFeed(pg, clock),
		feed.NewNATSPublisher(js, ncfg, clock),
		feed.DefaultRelayConfig(),
		clock,
	)

	if relayHealthAddr != "" {
		pool, err := setupDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		mux := http.NewServeMux()
		mux.Handle("/health", feed.NewRelayHealthChecker(relay, pool, nc))
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: relayHealthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("relay health server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info().
		Str("health_addr", relayHealthAddr).
		Str("database", cfg.Database.Database).
		Str("nats_url", ncfg.URL).
		Str("stream", ncfg.StreamName).
		Msg("starting relay")

	if err := relay.Start(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("relay exited unexpectedly: %w", err)
	}
	return nil
}
