package analysis

import "github.com/sells-group/heritage-cli/internal/model"

// Retained reports whether a site passes the retention predicate: covered
// by neither layer and at least minArea hectares. A site with an invalid
// area that is otherwise uncovered is retained so that aggregation reports
// it instead of it disappearing.
func Retained(s model.SiteOverlap, minArea float64) bool {
	if s.Protected || s.Urban {
		return false
	}
	if !s.Area.Valid {
		return true
	}
	return s.Area.Value >= minArea
}

// Filter returns the records that pass Retained, preserving order.
func Filter(records []model.SiteOverlap, minArea float64) []model.SiteOverlap {
	out := make([]model.SiteOverlap, 0, len(records))
	for _, r := range records {
		if Retained(r, minArea) {
			out = append(out, r)
		}
	}
	return out
}
