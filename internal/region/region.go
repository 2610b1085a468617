// Package region resolves the geographic scope of a run: the whole world,
// a bounding box, or an administrative boundary read from a shapefile.
package region

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Region is a clip region in EPSG:4326.
type Region struct {
	Name string
	// Geometry is the boundary polygon when the region came from a
	// shapefile, nil otherwise.
	Geometry *geom.MultiPolygon
	bounds   *geom.Bounds
}

// Global returns the unclipped region.
func Global() *Region {
	return &Region{Name: "global"}
}

// FromBBox builds a region from minLon, minLat, maxLon, maxLat.
func FromBBox(name string, bbox []float64) (*Region, error) {
	if len(bbox) != 4 {
		return nil, eris.Errorf("region: bbox needs 4 values, got %d", len(bbox))
	}
	if bbox[0] >= bbox[2] || bbox[1] >= bbox[3] {
		return nil, eris.Errorf("region: bbox %v is not minLon,minLat,maxLon,maxLat", bbox)
	}
	if name == "" {
		name = "bbox"
	}
	return &Region{
		Name:   name,
		bounds: geom.NewBounds(geom.XY).Set(bbox[0], bbox[1], bbox[2], bbox[3]),
	}, nil
}

// IsGlobal reports whether the region applies no clipping.
func (r *Region) IsGlobal() bool {
	return r.bounds == nil
}

// Bounds returns the region extent, or nil for a global region.
func (r *Region) Bounds() *geom.Bounds {
	if r.bounds == nil {
		return nil
	}
	return r.bounds.Clone()
}
