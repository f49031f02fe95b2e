package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/newthinker/signalboard/internal/config"
)

var (
	cfgFile string
	debug   bool
)

// loadEnvFunc is swapped in tests.
var loadEnvFunc = godotenv.Load

var rootCmd = &cobra.Command{
	Use:   "signalboard",
	Short: "signalboard - AI signal dashboard",
	Long: `signalboard turns the analysis backend's indicator and AI-signal bundles
into dashboard panels: segmented signal charts, indicator panels and
click-to-explain signal explanations.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal outside development.
		_ = loadEnvFunc()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads and validates the configuration. Without a file the
// defaults apply, still overridable from the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
