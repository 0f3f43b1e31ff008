package main

import (
	"github.com/spf13/cobra"

	"github.com/evtelemetry/bmsbridge/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "bmsbridge",
	Short: "BMS CAN telemetry bridge",
	Long: `bmsbridge requests summary and cell data from a battery management system
on a CAN bus, decodes the responses and publishes one line-protocol record
per decoded value group to MQTT or Redis.

Configuration is read from --config, $BMSBRIDGE_CONFIG or ./bmsbridge.yaml.
Any key can be overridden from the environment, e.g. BMSBRIDGE_BUS_INTERFACE.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the configuration and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
