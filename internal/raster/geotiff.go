package raster

import (
	"bufio"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/image/tiff"

	"github.com/sells-group/heritage-cli/internal/proj"
)

// worldFileExts lists the sidecar extensions tried for a TIFF, in order.
var worldFileExts = []string{".tfw", ".tifw", ".tiffw", ".wld"}

// ReadGeoTIFF decodes a single-band TIFF and georeferences it with its world
// file sidecar. Gray8, Gray16 and paletted images are supported; for
// paletted images the palette index is the cell value.
func ReadGeoTIFF(path string, crs proj.CRS, noData *float64) (*CoverageMask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	img, err := tiff.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}

	cols, rows, values, err := imageValues(img)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: %s", path)
	}

	wf, err := findWorldFile(path)
	if err != nil {
		return nil, err
	}
	wr, err := os.Open(wf)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open world file %s", wf)
	}
	defer wr.Close() //nolint:errcheck

	t, err := ReadWorldFile(wr)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: %s", wf)
	}

	return New(filepath.Base(path), cols, rows, values, t, crs, noData)
}

func imageValues(img image.Image) (int, int, []float64, error) {
	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()
	values := make([]float64, 0, cols*rows)

	switch im := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(im.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(im.Gray16At(x, y).Y))
			}
		}
	case *image.Paletted:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				values = append(values, float64(im.ColorIndexAt(x, y)))
			}
		}
	default:
		return 0, 0, nil, eris.Errorf("unsupported tiff pixel type %T", img)
	}
	return cols, rows, values, nil
}

func findWorldFile(path string) (string, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range worldFileExts {
		for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", eris.Errorf("raster: no world file found for %s", path)
}

// ReadWorldFile parses the six-line world file format. World files anchor the
// center of the upper-left cell; the returned transform anchors its corner.
func ReadWorldFile(r io.Reader) (Transform, error) {
	var terms []float64
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Transform{}, eris.Wrapf(err, "world file line %d", len(terms)+1)
		}
		terms = append(terms, v)
	}
	if err := sc.Err(); err != nil {
		return Transform{}, eris.Wrap(err, "read world file")
	}
	if len(terms) != 6 {
		return Transform{}, eris.Errorf("world file has %d terms, want 6", len(terms))
	}

	// A, D, B, E, C, F
	a, d, b, e, c, f := terms[0], terms[1], terms[2], terms[3], terms[4], terms[5]
	return Transform{
		c - a/2 - b/2, a, b,
		f - d/2 - e/2, d, e,
	}, nil
}
