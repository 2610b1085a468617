// Package analysis joins per-layer overlap flags onto sites, applies the
// retention filter and computes area statistics.
package analysis

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/heritage-cli/internal/model"
)

// Join attaches protected and urban overlap flags to every site, keyed by
// site id. Every site appears exactly once in site order; a layer with no
// record for a site leaves that flag nil. Records for unknown ids, records
// filed under the wrong layer and duplicate (site, layer) records are
// errors.
func Join(sites []model.Site, protected, urban []model.OverlapRecord) ([]model.JoinedSite, error) {
	joined := make([]model.JoinedSite, len(sites))
	pos := make(map[int]int, len(sites))
	for i, s := range sites {
		if _, dup := pos[s.ID]; dup {
			return nil, eris.Errorf("analysis: duplicate site id %d (%q)", s.ID, s.Name)
		}
		pos[s.ID] = i
		joined[i] = model.JoinedSite{Site: s}
	}

	attach := func(layer model.Layer, records []model.OverlapRecord) error {
		for _, r := range records {
			if r.Layer != layer {
				return eris.Errorf("analysis: %s record for site %d filed under %s", r.Layer, r.SiteID, layer)
			}
			i, ok := pos[r.SiteID]
			if !ok {
				return eris.Errorf("analysis: %s record for unknown site id %d", layer, r.SiteID)
			}
			flag := &joined[i].Protected
			if layer == model.LayerUrban {
				flag = &joined[i].Urban
			}
			if *flag != nil {
				return eris.Errorf("analysis: duplicate %s record for site %d", layer, r.SiteID)
			}
			covered := r.Covered
			*flag = &covered
		}
		return nil
	}

	if err := attach(model.LayerProtected, protected); err != nil {
		return nil, err
	}
	if err := attach(model.LayerUrban, urban); err != nil {
		return nil, err
	}
	return joined, nil
}

// ResolveAbsent applies the "absent sample means not covered" policy: every
// nil flag becomes false. It returns the resolved records and how many
// flags were absent.
func ResolveAbsent(joined []model.JoinedSite) ([]model.SiteOverlap, int) {
	out := make([]model.SiteOverlap, len(joined))
	var absent int
	resolve := func(f *bool) bool {
		if f == nil {
			absent++
			return false
		}
		return *f
	}
	for i, j := range joined {
		out[i] = model.SiteOverlap{
			Site:      j.Site,
			Protected: resolve(j.Protected),
			Urban:     resolve(j.Urban),
		}
	}
	return out, absent
}
