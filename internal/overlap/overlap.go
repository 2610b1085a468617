// Package overlap samples coverage masks at heritage-site positions.
package overlap

import (
	"go.uber.org/zap"

	"github.com/sells-group/heritage-cli/internal/model"
	"github.com/sells-group/heritage-cli/internal/raster"
)

// Classify samples mask at every site position and returns exactly one
// record per site, in site order. Site X/Y must be in the mask CRS.
//
// A site is covered when its cell holds a valid nonzero value. Positions
// outside the raster extent and nodata cells are not covered. Categorical
// masks must be binarized beforehand.
func Classify(mask *raster.CoverageMask, layer model.Layer, sites []model.Site) []model.OverlapRecord {
	records := make([]model.OverlapRecord, len(sites))
	var covered, outside int
	for i, s := range sites {
		v, ok := mask.Sample(s.X, s.Y)
		if !ok {
			outside++
		}
		records[i] = model.OverlapRecord{
			SiteID:  s.ID,
			Layer:   layer,
			Covered: ok && v != 0,
		}
		if records[i].Covered {
			covered++
		}
	}

	zap.L().Debug("overlap: classified sites",
		zap.String("layer", string(layer)),
		zap.String("mask", mask.Name),
		zap.Int("sites", len(sites)),
		zap.Int("covered", covered),
		zap.Int("unsampled", outside),
	)
	return records
}

// CountCovered returns how many records are covered.
func CountCovered(records []model.OverlapRecord) int {
	var n int
	for _, r := range records {
		if r.Covered {
			n++
		}
	}
	return n
}
