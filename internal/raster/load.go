package raster

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/heritage-cli/internal/proj"
)

// Load reads a coverage raster from a local path, choosing the decoder by
// file extension.
func Load(path string, crs proj.CRS, noData *float64) (*CoverageMask, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc", ".grd":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadASCIIGrid(f, filepath.Base(path), crs, noData)
	case ".tif", ".tiff":
		return ReadGeoTIFF(path, crs, noData)
	default:
		return nil, eris.Errorf("raster: unsupported raster format %q", path)
	}
}
