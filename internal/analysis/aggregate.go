package analysis

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/heritage-cli/internal/model"
)

// ErrInvalidArea is returned when a retained site has a missing or
// malformed area.
var ErrInvalidArea = eris.New("analysis: invalid site area")

// Aggregate computes overall and per-country area statistics over the
// retained sites. Countries are grouped by exact name and sorted by name.
// Any site with an invalid area aborts aggregation.
func Aggregate(retained []model.SiteOverlap) (*model.Summary, error) {
	all := make([]float64, 0, len(retained))
	byCountry := make(map[string][]float64)
	for _, s := range retained {
		if !s.Area.Valid {
			return nil, eris.Wrapf(ErrInvalidArea, "site %d (%q, %s): area %q", s.ID, s.Name, s.Country, s.Area.Raw)
		}
		all = append(all, s.Area.Value)
		byCountry[s.Country] = append(byCountry[s.Country], s.Area.Value)
	}

	summary := &model.Summary{
		Overall:   Describe(all),
		Countries: make([]model.CountryStatistics, 0, len(byCountry)),
	}
	for country, areas := range byCountry {
		summary.Countries = append(summary.Countries, model.CountryStatistics{
			Country:   country,
			AreaStats: Describe(areas),
		})
	}
	sort.Slice(summary.Countries, func(i, j int) bool {
		return summary.Countries[i].Country < summary.Countries[j].Country
	})
	return summary, nil
}

// LargeGroups returns the countries with more than k sites, sorted by
// ascending count and then by name.
func LargeGroups(countries []model.CountryStatistics, k int) []model.CountryStatistics {
	out := make([]model.CountryStatistics, 0, len(countries))
	for _, c := range countries {
		if c.Count > k {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// Describe returns count, mean, median, sample standard deviation, min
// and max of values. StdDev is nil for fewer than two values; the other
// fields are zero for an empty input.
func Describe(values []float64) model.AreaStats {
	st := model.AreaStats{Count: len(values)}
	if len(values) == 0 {
		return st
	}
	st.Mean = stat.Mean(values, nil)
	st.Median = median(values)
	st.Min = floats.Min(values)
	st.Max = floats.Max(values)
	if len(values) > 1 {
		sd := stat.StdDev(values, nil)
		st.StdDev = &sd
	}
	return st
}

// median averages the two middle values for even counts.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
