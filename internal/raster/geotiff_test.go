package raster

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/sells-group/heritage-cli/internal/proj"
)

func writeTIFF(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

// 0.5 degree cells, upper-left cell centered at (100.25, 39.75).
const worldFile = "0.5\n0.0\n0.0\n-0.5\n100.25\n39.75\n"

func TestReadWorldFile(t *testing.T) {
	tr, err := ReadWorldFile(strings.NewReader(worldFile))
	require.NoError(t, err)
	assert.Equal(t, Transform{100, 0.5, 0, 40, 0, -0.5}, tr)

	_, err = ReadWorldFile(strings.NewReader("1\n2\n3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 3 terms")

	_, err = ReadWorldFile(strings.NewReader("1\n0\n0\nminus one\n0\n0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
}

func TestReadGeoTIFF_Gray(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(1, 0, color.Gray{Y: 1})
	img.SetGray(2, 1, color.Gray{Y: 255})

	path := filepath.Join(dir, "wdpa.tif")
	writeTIFF(t, path, img)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wdpa.tfw"), []byte(worldFile), 0o644))

	m, err := ReadGeoTIFF(path, proj.WGS84, ptr(255))
	require.NoError(t, err)
	assert.Equal(t, "wdpa.tif", m.Name)
	assert.Equal(t, 3, m.Cols)
	assert.Equal(t, 2, m.Rows)

	v, ok := m.Sample(100.75, 39.75)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = m.Sample(100.25, 39.25)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = m.Sample(101.25, 39.25)
	assert.False(t, ok, "255 is nodata")
}

func TestReadGeoTIFF_PalettedUsesIndex(t *testing.T) {
	dir := t.TempDir()
	palette := make(color.Palette, 32)
	for i := range palette {
		palette[i] = color.Gray{Y: uint8(i * 8)}
	}
	img := image.NewPaletted(image.Rect(0, 0, 2, 1), palette)
	img.SetColorIndex(0, 0, 19)
	img.SetColorIndex(1, 0, 7)

	path := filepath.Join(dir, "landcover.tiff")
	writeTIFF(t, path, img)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landcover.wld"), []byte(worldFile), 0o644))

	m, err := Load(path, proj.WGS84, nil)
	require.NoError(t, err)

	v, ok := m.Sample(100.25, 39.75)
	require.True(t, ok)
	assert.Equal(t, 19.0, v)
	v, ok = m.Sample(100.75, 39.75)
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestReadGeoTIFF_MissingWorldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orphan.tif")
	writeTIFF(t, path, image.NewGray(image.Rect(0, 0, 1, 1)))

	_, err := ReadGeoTIFF(path, proj.WGS84, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no world file")
}

func TestReadGeoTIFF_Unsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rgb.tif")
	writeTIFF(t, path, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rgb.tfw"), []byte(worldFile), 0o644))

	_, err := ReadGeoTIFF(path, proj.WGS84, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tiff pixel type")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("/nonexistent/wdpa.asc", proj.WGS84, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/wdpa.asc")

	_, err = Load("mask.png", proj.WGS84, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported raster format")
}

func TestLoad_ASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urban.asc")
	require.NoError(t, os.WriteFile(path, []byte(sampleGrid), 0o644))

	m, err := Load(path, proj.WGS84, nil)
	require.NoError(t, err)
	assert.Equal(t, "urban.asc", m.Name)
	assert.Equal(t, 6, len(m.Values))
}
