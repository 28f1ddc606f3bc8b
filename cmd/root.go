package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "siteopt",
	Short: "Vaccination site optimization client",
	Long:  "Uploads barangay and candidate site workbooks, runs the facility-location optimizer, and renders assignments and map scenes. Also provides debounced address search against Mapbox.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; it usually only carries the Mapbox token.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		switch name := cmd.Name(); name {
		case "transform", "calculate", "search", "serve":
			return cfg.Validate(name)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
