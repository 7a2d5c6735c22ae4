package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/biorecs/occuncertainty/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "occuncertainty",
	Short: "Spatial uncertainty classification for biodiversity occurrence records",
	Long:  "Classifies occurrence records as precise, imprecise, county, state, or unusable by weighing stated coordinate uncertainty, coordinate precision, and administrative boundary areas.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
