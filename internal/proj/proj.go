// Package proj converts coordinates between the reference systems the
// coverage rasters are published in.
package proj

import (
	"math"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// WGS84 semi-major axis in meters, as used by EPSG:3857.
const earthRadiusMeters = 6378137.0

// MercatorMaxLat is the latitude at which EPSG:3857 becomes square.
const MercatorMaxLat = 85.05112877980659

// CRS is a planar coordinate reference system that can be reached from
// geographic longitude/latitude.
type CRS interface {
	// Code is the canonical authority code, e.g. "EPSG:4326".
	Code() string
	// Forward projects longitude/latitude degrees into CRS coordinates.
	Forward(lon, lat float64) (x, y float64)
	// Inverse converts CRS coordinates back to longitude/latitude degrees.
	Inverse(x, y float64) (lon, lat float64)
}

type projected struct {
	code   string
	p      s2.Projection
	maxLat float64
}

func (c projected) Code() string { return c.code }

// Forward clamps latitude to the projection's valid range.
func (c projected) Forward(lon, lat float64) (float64, float64) {
	lat = math.Max(-c.maxLat, math.Min(c.maxLat, lat))
	pt := c.p.FromLatLng(s2.LatLngFromDegrees(lat, lon))
	return pt.X, pt.Y
}

func (c projected) Inverse(x, y float64) (float64, float64) {
	ll := c.p.ToLatLng(r2.Point{X: x, Y: y})
	return ll.Lng.Degrees(), ll.Lat.Degrees()
}

var (
	// WGS84 is geographic longitude/latitude in degrees.
	WGS84 CRS = projected{code: "EPSG:4326", p: s2.NewPlateCarreeProjection(180), maxLat: 90}
	// WebMercator is spherical mercator in meters.
	WebMercator CRS = projected{code: "EPSG:3857", p: s2.NewMercatorProjection(math.Pi * earthRadiusMeters), maxLat: MercatorMaxLat}
)

var registry = map[string]CRS{
	"EPSG:4326":   WGS84,
	"WGS84":       WGS84,
	"CRS84":       WGS84,
	"EPSG:3857":   WebMercator,
	"EPSG:900913": WebMercator,
	"ESRI:102100": WebMercator,
}

// Lookup returns the CRS registered under code (case-insensitive).
func Lookup(code string) (CRS, error) {
	c, ok := registry[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, eris.Errorf("proj: unsupported crs %q", code)
	}
	return c, nil
}

// Same reports whether a and b are the same reference system.
func Same(a, b CRS) bool {
	return a.Code() == b.Code()
}

// Transform converts a point from one CRS to another.
func Transform(from, to CRS, x, y float64) (float64, float64) {
	if Same(from, to) {
		return x, y
	}
	lon, lat := from.Inverse(x, y)
	return to.Forward(lon, lat)
}

// edgeSamples is the number of points sampled along each bounds edge when
// transforming bounds, so curved edges are not cut off.
const edgeSamples = 21

// TransformBounds converts 2D bounds between reference systems. Edges are
// densified and polar latitudes clamp to the target's limit; remaining
// non-finite results are skipped.
func TransformBounds(from, to CRS, b *geom.Bounds) (*geom.Bounds, error) {
	if b == nil || b.IsEmpty() {
		return nil, eris.New("proj: empty bounds")
	}
	if Same(from, to) {
		return b.Clone(), nil
	}

	minX, minY, maxX, maxY := b.Min(0), b.Min(1), b.Max(0), b.Max(1)
	out := geom.NewBounds(geom.XY)
	for i := 0; i < edgeSamples; i++ {
		f := float64(i) / float64(edgeSamples-1)
		x := minX + f*(maxX-minX)
		y := minY + f*(maxY-minY)
		for _, pt := range [][2]float64{{x, minY}, {x, maxY}, {minX, y}, {maxX, y}} {
			tx, ty := Transform(from, to, pt[0], pt[1])
			if math.IsNaN(tx) || math.IsNaN(ty) || math.IsInf(tx, 0) || math.IsInf(ty, 0) {
				continue
			}
			out.Extend(geom.NewPointFlat(geom.XY, []float64{tx, ty}))
		}
	}
	if out.IsEmpty() {
		return nil, eris.Errorf("proj: bounds not representable in %s", to.Code())
	}
	return out, nil
}
