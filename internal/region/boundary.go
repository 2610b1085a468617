package region

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadBoundary reads an administrative boundary shapefile and returns the
// region whose nameField attribute equals name (case-insensitive). Features
// sharing the name are merged.
func LoadBoundary(shpPath, nameField, name string) (*Region, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "region: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader, nameField)
	if idx < 0 {
		return nil, eris.Errorf("region: field %q not found in %s", nameField, shpPath)
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var matched int
	for reader.Next() {
		n, shape := reader.Shape()
		value := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
		if !strings.EqualFold(value, name) {
			continue
		}
		matched++

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			zap.L().Debug("region: skipping non-polygon feature",
				zap.Int("feature", n),
				zap.String("name", value),
			)
			continue
		}
		appendPolygon(mp, poly)
	}

	if matched == 0 {
		return nil, eris.Errorf("region: no feature with %s=%q in %s", nameField, name, shpPath)
	}
	if mp.NumPolygons() == 0 {
		return nil, eris.Errorf("region: feature %q in %s has no polygon geometry", name, shpPath)
	}

	return &Region{
		Name:     name,
		Geometry: mp,
		bounds:   mp.Bounds(),
	}, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// appendPolygon adds each part of a shapefile polygon to mp as its own
// polygon. Shapefile parts mix outer rings and holes; for clipping only the
// extent matters, so holes are kept as extra polygons.
func appendPolygon(mp *geom.MultiPolygon, p *shp.Polygon) {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("region: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("region: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}
}
