package main

import (
	"fmt"
	"os"

	"github.com/mcdev12/fieldboss/go/internal/config"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
	cfg        *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fieldboss",
	Short: "Shared field boss respawn timers",
	Long: `fieldboss tracks field boss respawn timers per channel. Every viewer
shares one timer table and sees changes made by anyone else live.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the viewer when no subcommand is provided
		return runWatch(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "fieldboss.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Timer store: postgres, remote or memory")
	rootCmd.PersistentFlags().StringVar(&feedDriver, "feed", "", "Change feed: postgres, nats, ws or memory")

	rootCmd.AddCommand(watchCmd, startCmd, gatewayCmd, relayCmd, migrateCmd)
}

var (
	storeDriver string
	feedDriver  string
)

// applyFlags lets command line flags win over file and environment.
func applyFlags() error {
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
	}
	if feedDriver != "" {
		cfg.Feed.Driver = feedDriver
	}
	return cfg.Validate()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
