package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/heritage-cli/internal/config"
	"github.com/sells-group/heritage-cli/internal/fetcher"
	"github.com/sells-group/heritage-cli/internal/pipeline"
	"github.com/sells-group/heritage-cli/internal/report"
	"github.com/sells-group/heritage-cli/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the overlap analysis and print the report",
	Long:  "Loads the masks and site table, samples coverage at every site, keeps uncovered sites above the area threshold and reports area statistics by country.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		var st store.Store
		if save, _ := cmd.Flags().GetBool("save"); save {
			s, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			if err := s.Migrate(ctx); err != nil {
				return err
			}
			st = s
		}

		res, err := pipeline.New(cfg, newResolver(), st).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		return report.Write(os.Stdout, res, format)
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print per-site coverage flags without filtering",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		sites, err := pipeline.New(cfg, newResolver(), nil).Sample(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "sample")
		}
		return report.WriteSites(os.Stdout, sites, format)
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, sampleCmd} {
		c.Flags().String("region", "", "region name (boundary feature to clip to, or label for --bbox)")
		c.Flags().String("boundary", "", "boundary shapefile source (path, URL or .zip)")
		c.Flags().Float64Slice("bbox", nil, "clip box as minLon,minLat,maxLon,maxLat")
		c.Flags().String("country", "", "keep only sites of this country")
		c.Flags().String("category", "", "site category to keep (default from config)")
		c.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	}
	analyzeCmd.Flags().Float64("min-area", 0, "minimum site area in hectares (default from config)")
	analyzeCmd.Flags().Int("min-group", 0, "report countries with more than this many sites (default from config)")
	analyzeCmd.Flags().Bool("save", false, "save the run to the configured store")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sampleCmd)
}

// applyRunFlags overrides configuration with the flags that were set and
// validates the result.
func applyRunFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("region") {
		c.Region.Name, _ = flags.GetString("region")
	}
	if flags.Changed("boundary") {
		c.Region.Boundary, _ = flags.GetString("boundary")
	}
	if flags.Changed("bbox") {
		c.Region.BBox, _ = flags.GetFloat64Slice("bbox")
	}
	if flags.Changed("country") {
		c.Region.Country, _ = flags.GetString("country")
	}
	if flags.Changed("category") {
		c.Analysis.CategoryFilter, _ = flags.GetString("category")
	}
	if flags.Changed("min-area") {
		c.Analysis.MinAreaHectares, _ = flags.GetFloat64("min-area")
	}
	if flags.Changed("min-group") {
		c.Analysis.MinGroupSize, _ = flags.GetInt("min-group")
	}
	return c.Validate()
}

func outputFormat(cmd *cobra.Command) (report.Format, error) {
	name, _ := cmd.Flags().GetString("format")
	return report.ParseFormat(name)
}

func newResolver() *fetcher.Resolver {
	return fetcher.NewResolver(fetcher.ResolverOptions{
		TempDir:    cfg.Fetch.TempDir,
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		HostRate:   cfg.Fetch.RateLimit,
	})
}
