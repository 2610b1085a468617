package region

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
}

func polygon(rings ...[]shp.Point) *shp.Polygon {
	var parts []int32
	var points []shp.Point
	for _, r := range rings {
		parts = append(parts, int32(len(points)))
		points = append(points, r...)
	}
	return &shp.Polygon{
		Box:       shp.BBoxFromPoints(points),
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
}

// writeCountries writes a polygon shapefile with an ADMIN attribute.
func writeCountries(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "countries.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("ADMIN", 40)}))

	features := []struct {
		name string
		poly *shp.Polygon
	}{
		// Mainland plus Sicily as a second part.
		{"Italy", polygon(square(6.6, 36.6, 18.5, 47.1), square(12.4, 35.5, 15.7, 38.3))},
		{"China", polygon(square(73.5, 18.2, 134.8, 53.6))},
		// A second Italy feature (Sardinia) is merged into the region.
		{"Italy", polygon(square(8.1, 38.8, 9.8, 41.3))},
	}
	for _, f := range features {
		idx := w.Write(f.poly)
		require.NoError(t, w.WriteAttribute(int(idx), 0, f.name))
	}
	w.Close()
	return path
}

func TestGlobal(t *testing.T) {
	r := Global()
	assert.Equal(t, "global", r.Name)
	assert.True(t, r.IsGlobal())
	assert.Nil(t, r.Bounds())
}

func TestFromBBox(t *testing.T) {
	r, err := FromBBox("italy", []float64{6.6, 35.5, 18.5, 47.1})
	require.NoError(t, err)
	assert.False(t, r.IsGlobal())
	assert.Equal(t, "italy", r.Name)

	b := r.Bounds()
	assert.InDelta(t, 6.6, b.Min(0), 1e-9)
	assert.InDelta(t, 47.1, b.Max(1), 1e-9)

	// Bounds returns a copy.
	b.Set(0, 0, 1, 1)
	assert.InDelta(t, 6.6, r.Bounds().Min(0), 1e-9)

	r, err = FromBBox("", []float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, "bbox", r.Name)
}

func TestFromBBox_Invalid(t *testing.T) {
	_, err := FromBBox("x", []float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 4 values")

	_, err = FromBBox("x", []float64{10, 0, 5, 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not minLon,minLat,maxLon,maxLat")
}

func TestLoadBoundary(t *testing.T) {
	path := writeCountries(t)

	r, err := LoadBoundary(path, "admin", "italy")
	require.NoError(t, err)
	assert.Equal(t, "italy", r.Name)
	require.NotNil(t, r.Geometry)
	assert.Equal(t, 3, r.Geometry.NumPolygons())
	assert.Equal(t, 4326, r.Geometry.SRID())

	b := r.Bounds()
	assert.InDelta(t, 6.6, b.Min(0), 1e-9)
	assert.InDelta(t, 35.5, b.Min(1), 1e-9)
	assert.InDelta(t, 18.5, b.Max(0), 1e-9)
	assert.InDelta(t, 47.1, b.Max(1), 1e-9)
}

func TestLoadBoundary_Errors(t *testing.T) {
	path := writeCountries(t)

	_, err := LoadBoundary(path, "ADMIN", "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no feature with ADMIN="Atlantis"`)

	_, err = LoadBoundary(path, "NAME_EN", "Italy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "NAME_EN" not found`)

	_, err = LoadBoundary(filepath.Join(t.TempDir(), "missing.shp"), "ADMIN", "Italy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}

func TestLoadBoundary_PointFeatureHasNoPolygon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capitals.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("ADMIN", 40)}))
	idx := w.Write(&shp.Point{X: 12.5, Y: 41.9})
	require.NoError(t, w.WriteAttribute(int(idx), 0, "Italy"))
	w.Close()

	_, err = LoadBoundary(path, "ADMIN", "Italy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no polygon geometry")
}
