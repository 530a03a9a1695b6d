package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonal-metrics/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "zonal-metrics",
	Short: "Zonal environmental statistics pipeline",
	Long:  "Computes per-region environmental metrics (forest loss, land cover, protected areas, fire, vegetation) by reducing remote raster datasets over supplied polygons.",
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
