// Package report renders run results as text tables, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/heritage-cli/internal/model"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("report: unknown format %q (want text, json or yaml)", s)
	}
}

// Write renders a full run result.
func Write(w io.Writer, res *model.Result, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		return writeYAML(w, res)
	case FormatText, "":
		return writeText(w, res)
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

// WriteSites renders per-site overlap flags only.
func WriteSites(w io.Writer, sites []model.SiteOverlap, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, sites)
	case FormatYAML:
		return writeYAML(w, sites)
	case FormatText, "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		writeSiteTable(tw, sites, nil)
		return eris.Wrap(tw.Flush(), "report: flush")
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

// Encode renders any value as JSON or YAML.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatYAML:
		return writeYAML(w, v)
	default:
		return eris.Errorf("report: format %q cannot encode %T", format, v)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "report: encode yaml")
	}
	return eris.Wrap(enc.Close(), "report: close yaml encoder")
}

func writeText(w io.Writer, res *model.Result) error {
	p := res.Params
	fmt.Fprintf(w, "# Heritage overlap report: %s\n", p.Region)
	if res.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", res.RunID)
	}
	fmt.Fprintf(w, "CRS: %s  category: %s  min area: %s ha  min group: %d",
		p.CRS, p.CategoryFilter, formatFloat(p.MinAreaHectares), p.MinGroupSize)
	if p.Country != "" {
		fmt.Fprintf(w, "  country: %s", p.Country)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	retained := make(map[int]bool, len(res.Retained))
	for _, s := range res.Retained {
		retained[s.ID] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "## Sites (%d loaded, %d retained)\n", len(res.Sites), len(res.Retained))
	writeSiteTable(tw, res.Sites, retained)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "## Overall")
	fmt.Fprintln(tw, "COUNT\tMEAN\tMEDIAN\tSTD_DEV\tMIN\tMAX")
	o := res.Summary.Overall
	fmt.Fprintf(tw, "%d\t%s\n", o.Count, statColumns(o))
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "## By country")
	writeCountryTable(tw, res.Summary.Countries)
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "## Countries with more than %d sites\n", p.MinGroupSize)
	writeCountryTable(tw, res.LargeGroups)

	return eris.Wrap(tw.Flush(), "report: flush")
}

func writeSiteTable(tw *tabwriter.Writer, sites []model.SiteOverlap, retained map[int]bool) {
	if retained != nil {
		fmt.Fprintln(tw, "ID\tNAME\tCOUNTRY\tAREA_HA\tWDPA\tURBAN\tRETAINED")
	} else {
		fmt.Fprintln(tw, "ID\tNAME\tCOUNTRY\tAREA_HA\tWDPA\tURBAN")
	}
	for _, s := range sites {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%t", s.ID, s.Name, s.Country, formatArea(s.Area), s.Protected, s.Urban)
		if retained != nil {
			fmt.Fprintf(tw, "\t%t", retained[s.ID])
		}
		fmt.Fprintln(tw)
	}
}

func writeCountryTable(tw *tabwriter.Writer, countries []model.CountryStatistics) {
	if len(countries) == 0 {
		fmt.Fprintln(tw, "(none)")
		return
	}
	fmt.Fprintln(tw, "COUNTRY\tCOUNT\tMEAN\tMEDIAN\tSTD_DEV\tMIN\tMAX")
	for _, c := range countries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Country, c.Count, statColumns(c.AreaStats))
	}
}

func statColumns(s model.AreaStats) string {
	if s.Count == 0 {
		return "-\t-\t-\t-\t-"
	}
	return strings.Join([]string{
		formatFloat(s.Mean),
		formatFloat(s.Median),
		formatStdDev(s.StdDev),
		formatFloat(s.Min),
		formatFloat(s.Max),
	}, "\t")
}

// formatStdDev renders an undefined deviation as "undefined", never 0.
func formatStdDev(sd *float64) string {
	if sd == nil {
		return "undefined"
	}
	return formatFloat(*sd)
}

func formatArea(h model.Hectares) string {
	if !h.Valid {
		if h.Raw == "" {
			return "missing"
		}
		return "invalid(" + h.Raw + ")"
	}
	return formatFloat(h.Value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
