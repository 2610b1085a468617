package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/heritage-cli/internal/model"
	"github.com/sells-group/heritage-cli/internal/report"
	"github.com/sells-group/heritage-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved analysis runs",
	Long:  "Commands for listing saved runs and viewing their summaries and sites.",
}

// openStore opens and migrates the configured store.
func openStore(cmd *cobra.Command) (store.Store, error) {
	ctx := cmd.Context()
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		region, _ := cmd.Flags().GetString("region")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{Region: region, Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the parameters and summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		if format == report.FormatText {
			formatRun(os.Stdout, run)
			return nil
		}
		return report.Encode(os.Stdout, run, format)
	},
}

// -- runs sites --

var runsSitesCmd = &cobra.Command{
	Use:   "sites <run-id>",
	Short: "List the sites of a run with their coverage flags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sites, err := st.ListSites(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs sites")
		}

		if retainedOnly, _ := cmd.Flags().GetBool("retained"); retainedOnly {
			kept := sites[:0]
			for _, s := range sites {
				if s.Retained {
					kept = append(kept, s)
				}
			}
			sites = kept
		}

		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}
		if format == report.FormatText {
			formatStoredSites(os.Stdout, sites)
			return nil
		}
		return report.Encode(os.Stdout, sites, format)
	},
}

func init() {
	runsListCmd.Flags().String("region", "", "filter by region name")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsShowCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	runsSitesCmd.Flags().StringP("format", "f", "text", "output format: text, json or yaml")
	runsSitesCmd.Flags().Bool("retained", false, "only list retained sites")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsSitesCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREGION\tCATEGORY\tMIN_AREA\tSITES\tRETAINED\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t--------\t-----\t--------\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(r.ID),
			r.Params.Region,
			r.Params.CategoryFilter,
			strconv.FormatFloat(r.Params.MinAreaHectares, 'f', -1, 64),
			r.SiteCount,
			r.RetainedCount,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRun writes a run's parameters and overall statistics to w.
func formatRun(out io.Writer, r *model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.ID)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Region:\t%s\n", r.Params.Region)
	if r.Params.Country != "" {
		_, _ = fmt.Fprintf(w, "Country:\t%s\n", r.Params.Country)
	}
	_, _ = fmt.Fprintf(w, "CRS:\t%s\n", r.Params.CRS)
	_, _ = fmt.Fprintf(w, "Category:\t%s\n", r.Params.CategoryFilter)
	_, _ = fmt.Fprintf(w, "Min area (ha):\t%g\n", r.Params.MinAreaHectares)
	_, _ = fmt.Fprintf(w, "Sites:\t%d\n", r.SiteCount)
	_, _ = fmt.Fprintf(w, "Retained:\t%d\n", r.RetainedCount)
	_, _ = fmt.Fprintf(w, "Countries:\t%d\n", len(r.Summary.Countries))
	o := r.Summary.Overall
	_, _ = fmt.Fprintf(w, "Mean area (ha):\t%.2f\n", o.Mean)
	_, _ = fmt.Fprintf(w, "Median area (ha):\t%.2f\n", o.Median)
	if o.StdDev != nil {
		_, _ = fmt.Fprintf(w, "Std dev (ha):\t%.2f\n", *o.StdDev)
	} else {
		_, _ = fmt.Fprintln(w, "Std dev (ha):\tundefined")
	}
	_ = w.Flush()
}

// formatStoredSites writes the sites of a run to w.
func formatStoredSites(out io.Writer, sites []model.StoredSite) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCOUNTRY\tAREA_HA\tWDPA\tURBAN\tRETAINED")
	for _, s := range sites {
		area := "-"
		if s.Area.Valid {
			area = strconv.FormatFloat(s.Area.Value, 'f', 2, 64)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%t\t%t\n",
			s.ID, s.Name, s.Country, area, s.Protected, s.Urban, s.Retained)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
