package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/heritage-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "heritage-cli",
	Short: "Heritage site overlap analysis",
	Long: `Classifies cultural heritage sites against protected-area and urban coverage
rasters and reports per-country area statistics.

  sample    flag every site in the region as protected and/or urban
  analyze   keep uncovered sites above the area threshold, aggregate by country
  runs      browse saved analyze runs (requires store.driver sqlite or postgres)

Settings come from ./config.yaml and HERITAGE_* environment variables.`,
	Example: `  heritage-cli sample --bbox 6.6,35.5,18.5,47.1 -f json
  heritage-cli analyze --region Italy --boundary ne_110m_admin_0_countries.zip --save
  heritage-cli runs list --region Italy`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := config.InitLogger(c.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		cfg = c
		zap.L().Debug("heritage: config loaded",
			zap.String("command", cmd.CommandPath()),
			zap.String("store", cfg.Store.Driver),
		)
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
