package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/prefs"
	"github.com/mcdev12/fieldboss/go/internal/reconcile"
	"github.com/mcdev12/fieldboss/go/internal/session"
	"github.com/mcdev12/fieldboss/go/internal/tui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live timer viewer",
	Example: `  fieldboss watch
  fieldboss watch --store remote --feed ws`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := applyFlags(); err != nil {
		return err
	}
	closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.File, true)
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

	preferences, err := prefs.OpenSQLite(cfg.Prefs.Path)
	if err != nil {
		return err
	}
	defer preferences.Close()

	clock := clockwork.NewRealClock()
	player := reconcile.NewBellPlayer(os.Stderr, clock, cfg.Alert.BellInterval, prefs.DefaultVolume)

	sess := session.New(session.DefaultConfig(), services.Store, services.Feed, preferences, player, clock)
	program := tea.NewProgram(tui.NewModel(sess), tea.WithAltScreen(), tea.WithContext(ctx))
	sess.Observe(func(v reconcile.View) {
		program.Send(tui.ViewMsg{View: v})
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sessionDone := make(chan error, 1)
	go func() { sessionDone <- sess.Run(runCtx) }()

	log.Info().Str("version", version).Msg("viewer started")

	_, runErr := program.Run()
	cancel()
	if err := <-sessionDone; err != nil {
		log.Error().Err(err).Msg("session stopped with error")
	}
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run viewer: %w", runErr)
	}
	return nil
}
