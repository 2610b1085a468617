package proj

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"EPSG:4326", "EPSG:4326"},
		{"epsg:4326", "EPSG:4326"},
		{" WGS84 ", "EPSG:4326"},
		{"EPSG:3857", "EPSG:3857"},
		{"EPSG:900913", "EPSG:3857"},
		{"ESRI:102100", "EPSG:3857"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, err := Lookup(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Code())
		})
	}

	_, err := Lookup("ESRI:54009")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported crs")
}

func TestWGS84_Identity(t *testing.T) {
	x, y := WGS84.Forward(12.4964, 41.9028)
	assert.InDelta(t, 12.4964, x, 1e-9)
	assert.InDelta(t, 41.9028, y, 1e-9)

	lon, lat := WGS84.Inverse(x, y)
	assert.InDelta(t, 12.4964, lon, 1e-9)
	assert.InDelta(t, 41.9028, lat, 1e-9)
}

func TestWebMercator_KnownPoints(t *testing.T) {
	x, y := WebMercator.Forward(0, 0)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	// Antimeridian maps to pi * R.
	x, _ = WebMercator.Forward(180, 0)
	assert.InDelta(t, 20037508.342789244, x, 1e-3)

	// Rome, cross-checked against EPSG:3857 reference values.
	x, y = WebMercator.Forward(12.4964, 41.9028)
	assert.InDelta(t, 1391092.885, x, 1e-2)
	assert.InDelta(t, 5146430.457, y, 1e-2)

	lon, lat := WebMercator.Inverse(x, y)
	assert.InDelta(t, 12.4964, lon, 1e-7)
	assert.InDelta(t, 41.9028, lat, 1e-7)
}

func TestTransform_SameCRSIsNoop(t *testing.T) {
	x, y := Transform(WebMercator, WebMercator, 123.4, -56.7)
	assert.Equal(t, 123.4, x)
	assert.Equal(t, -56.7, y)
}

func TestTransform_RoundTrip(t *testing.T) {
	x, y := Transform(WGS84, WebMercator, 116.39, 39.91)
	lon, lat := Transform(WebMercator, WGS84, x, y)
	assert.InDelta(t, 116.39, lon, 1e-7)
	assert.InDelta(t, 39.91, lat, 1e-7)
}

func TestTransformBounds(t *testing.T) {
	b := geom.NewBounds(geom.XY).Set(6.6, 35.5, 18.5, 47.1)

	out, err := TransformBounds(WGS84, WebMercator, b)
	require.NoError(t, err)

	minX, minY := WebMercator.Forward(6.6, 35.5)
	maxX, maxY := WebMercator.Forward(18.5, 47.1)
	assert.InDelta(t, minX, out.Min(0), 1e-6)
	assert.InDelta(t, minY, out.Min(1), 1e-6)
	assert.InDelta(t, maxX, out.Max(0), 1e-6)
	assert.InDelta(t, maxY, out.Max(1), 1e-6)
}

func TestTransformBounds_PolesClampToMercatorLimit(t *testing.T) {
	b := geom.NewBounds(geom.XY).Set(-180, -90, 180, 90)

	out, err := TransformBounds(WGS84, WebMercator, b)
	require.NoError(t, err)
	assert.InDelta(t, -20037508.342789244, out.Min(0), 1e-3)
	assert.InDelta(t, -20037508.342789244, out.Min(1), 1)
	assert.InDelta(t, 20037508.342789244, out.Max(1), 1)

	// Svalbard sits above the outermost densified edge sample.
	_, y := WebMercator.Forward(15.6, 84)
	assert.Less(t, y, out.Max(1))
}

func TestWebMercator_ClampsLatitude(t *testing.T) {
	_, y := WebMercator.Forward(0, 90)
	_, yMax := WebMercator.Forward(0, MercatorMaxLat)
	assert.False(t, math.IsInf(y, 0))
	assert.InDelta(t, yMax, y, 1e-6)

	_, y = WebMercator.Forward(0, -90)
	assert.InDelta(t, -yMax, y, 1e-6)
}

func TestTransformBounds_Empty(t *testing.T) {
	_, err := TransformBounds(WGS84, WebMercator, geom.NewBounds(geom.XY))
	require.Error(t, err)
}
