package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transitlab/linemap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "linemap",
	Short: "Bus line geometry exporter",
	Long:  "Fetches bus line geometry from the Amap WebService, converts it to WGS-84, writes per-route GeoJSON, and renders an interactive batch preview.",
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
