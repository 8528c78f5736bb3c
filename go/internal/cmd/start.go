package main

import (
	"fmt"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/mcdev12/fieldboss/go/internal/reconcile"
	"github.com/mcdev12/fieldboss/go/internal/timers"
	"github.com/spf13/cobra"
)

var startResource string

var startCmd = &cobra.Command{
	Use:   "start [flags] CHANNEL KIND",
	Short: "Start a timer on a channel",
	Long: `Start a timer for the selected boss. KIND is a kind number (1-3) or its
full name. Any timer already on the channel is replaced.`,
	Example: `  fieldboss start 12 1
  fieldboss start --resource Pinchy 7 "Variant Spawning"`,
	Args: cobra.ExactArgs(2),
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startResource, "resource", "r", string(models.DefaultResource), "Boss to start the timer for")
}

func runStart(cmd *cobra.Command, args []string) error {
	if err := applyFlags(); err != nil {
		return err
	}
	closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.File, false)
	if err != nil {
		return err
	}
	defer closeLog()

	resource, err := models.ParseResource(startResource)
	if err != nil {
		return err
	}
	kind, err := parseKind(resource, args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	services, err := setupServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	// The duplicate check runs against what the store holds right now.
	clock := clockwork.NewRealClock()
	rows, err := services.Store.FetchActive(ctx, resource)
	if err != nil {
		return fmt.Errorf("fetch active timers: %w", err)
	}
	active := reconcile.NewEngine(resource, nil)
	active.Seed(resource, rows, clock.Now())

	coordinator := timers.NewCoordinator(services.Store, active, clock)
	if err := coordinator.RequestTimer(ctx, resource, args[0], kind); err != nil {
		return err
	}

	duration, _ := resource.Duration(kind)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s on channel %s: %s\n",
		resource, kind, args[0], models.FormatRemaining(int(duration.Seconds())))
	return nil
}

// parseKind accepts a 1-based kind number or an exact kind name.
func parseKind(resource models.Resource, s string) (models.Kind, error) {
	kinds := resource.Kinds()
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > len(kinds) {
			return "", fmt.Errorf("kind number must be 1-%d", len(kinds))
		}
		return kinds[n-1], nil
	}
	if _, ok := resource.Duration(models.Kind(s)); ok {
		return models.Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", timers.ErrUnknownKind, s)
}
