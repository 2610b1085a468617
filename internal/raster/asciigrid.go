package raster

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/heritage-cli/internal/proj"
)

// asciiHeader holds the ESRI ASCII grid header keys.
type asciiHeader struct {
	ncols, nrows int
	x, y         float64
	center       bool
	dx, dy       float64
	noData       *float64
}

// ReadASCIIGrid parses an ESRI ASCII grid. The grid's NODATA_value is used
// unless noData is given.
func ReadASCIIGrid(r io.Reader, name string, crs proj.CRS, noData *float64) (*CoverageMask, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	var h asciiHeader
	var pending string
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if !isHeaderKey(key) {
			pending = tok
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("raster: %s: header %s has no value", name, tok)
		}
		if err := h.set(key, sc.Text()); err != nil {
			return nil, eris.Wrapf(err, "raster: %s", name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "raster: %s: read header", name)
	}
	if h.ncols <= 0 || h.nrows <= 0 || h.dx <= 0 || h.dy <= 0 {
		return nil, eris.Errorf("raster: %s: incomplete ascii grid header", name)
	}

	values := make([]float64, 0, h.ncols*h.nrows)
	next := pending
	for {
		if next == "" {
			if !sc.Scan() {
				break
			}
			next = sc.Text()
		}
		v, err := strconv.ParseFloat(next, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: %s: cell %d", name, len(values))
		}
		values = append(values, v)
		next = ""
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "raster: %s: read cells", name)
	}

	// The header anchors the lower-left of the grid; the transform anchors
	// the upper-left.
	originX, lowerY := h.x, h.y
	if h.center {
		originX -= h.dx / 2
		lowerY -= h.dy / 2
	}
	t := NorthUp(originX, lowerY+float64(h.nrows)*h.dy, h.dx, h.dy)

	nd := h.noData
	if noData != nil {
		nd = noData
	}
	return New(name, h.ncols, h.nrows, values, t, crs, nd)
}

func isHeaderKey(key string) bool {
	switch key {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter",
		"cellsize", "dx", "dy", "nodata_value":
		return true
	}
	return false
}

func (h *asciiHeader) set(key, raw string) error {
	if key == "ncols" || key == "nrows" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return eris.Wrapf(err, "header %s", key)
		}
		if key == "ncols" {
			h.ncols = n
		} else {
			h.nrows = n
		}
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return eris.Wrapf(err, "header %s", key)
	}
	switch key {
	case "xllcorner":
		h.x = v
	case "yllcorner":
		h.y = v
	case "xllcenter":
		h.x, h.center = v, true
	case "yllcenter":
		h.y, h.center = v, true
	case "cellsize":
		h.dx, h.dy = v, v
	case "dx":
		h.dx = v
	case "dy":
		h.dy = v
	case "nodata_value":
		h.noData = &v
	}
	return nil
}
