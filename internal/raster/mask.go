// Package raster holds georeferenced coverage grids and the operations the
// overlap analysis needs on them: point sampling, cropping to a region,
// class binarization and reprojection.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/heritage-cli/internal/proj"
)

// ErrNoOverlap is returned when a crop region does not intersect a raster.
var ErrNoOverlap = eris.New("raster: region does not intersect raster extent")

// Transform is an affine geotransform in GDAL order:
//
//	x = T[0] + col*T[1] + row*T[2]
//	y = T[3] + col*T[4] + row*T[5]
//
// where (col, row) is the upper-left corner of a cell.
type Transform [6]float64

// NorthUp returns the transform of an unrotated grid whose upper-left corner
// is (originX, originY) with square-or-rectangular cells.
func NorthUp(originX, originY, cellWidth, cellHeight float64) Transform {
	return Transform{originX, cellWidth, 0, originY, 0, -cellHeight}
}

// Apply maps fractional cell coordinates to CRS coordinates.
func (t Transform) Apply(col, row float64) (float64, float64) {
	return t[0] + col*t[1] + row*t[2], t[3] + col*t[4] + row*t[5]
}

// Invert maps CRS coordinates to fractional cell coordinates.
func (t Transform) Invert(x, y float64) (col, row float64, ok bool) {
	det := t[1]*t[5] - t[2]*t[4]
	if det == 0 {
		return 0, 0, false
	}
	dx, dy := x-t[0], y-t[3]
	col = (t[5]*dx - t[2]*dy) / det
	row = (-t[4]*dx + t[1]*dy) / det
	return col, row, true
}

// CoverageMask is a georeferenced grid of cell values. Values are stored
// row-major, row 0 first. Masks are treated as immutable; every operation
// returns a new mask.
type CoverageMask struct {
	Name      string
	Cols      int
	Rows      int
	Values    []float64
	Transform Transform
	CRS       proj.CRS
	// NoData is the sentinel for cells without valid data. NaN cells are
	// always treated as nodata.
	NoData *float64

	// src is the mask this one was reprojected from.
	src *CoverageMask
}

// New validates dimensions and returns a mask over values.
func New(name string, cols, rows int, values []float64, t Transform, crs proj.CRS, noData *float64) (*CoverageMask, error) {
	if cols <= 0 || rows <= 0 {
		return nil, eris.Errorf("raster: %s: invalid dimensions %dx%d", name, cols, rows)
	}
	if len(values) != cols*rows {
		return nil, eris.Errorf("raster: %s: expected %d cells, got %d", name, cols*rows, len(values))
	}
	if crs == nil {
		return nil, eris.Errorf("raster: %s: missing crs", name)
	}
	if _, _, ok := t.Invert(0, 0); !ok {
		return nil, eris.Errorf("raster: %s: singular transform %v", name, t)
	}
	return &CoverageMask{
		Name:      name,
		Cols:      cols,
		Rows:      rows,
		Values:    values,
		Transform: t,
		CRS:       crs,
		NoData:    noData,
	}, nil
}

// IsNoData reports whether v is the nodata sentinel or NaN.
func (m *CoverageMask) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return m.NoData != nil && v == *m.NoData
}

// At returns the value of cell (col, row).
func (m *CoverageMask) At(col, row int) float64 {
	return m.Values[row*m.Cols+col]
}

// Cell locates the cell containing (x, y), given in the mask CRS.
func (m *CoverageMask) Cell(x, y float64) (col, row int, ok bool) {
	fc, fr, ok := m.Transform.Invert(x, y)
	if !ok || math.IsNaN(fc) || math.IsNaN(fr) {
		return 0, 0, false
	}
	c, r := math.Floor(fc), math.Floor(fr)
	if c < 0 || r < 0 || c >= float64(m.Cols) || r >= float64(m.Rows) {
		return 0, 0, false
	}
	return int(c), int(r), true
}

// Sample returns the value of the cell containing (x, y). ok is false when
// the point is outside the raster extent or the cell holds nodata. A
// reprojected mask reads the source cell under the point.
func (m *CoverageMask) Sample(x, y float64) (float64, bool) {
	col, row, ok := m.Cell(x, y)
	if !ok {
		return 0, false
	}
	if m.src != nil {
		sx, sy := proj.Transform(m.CRS, m.src.CRS, x, y)
		return m.src.Sample(sx, sy)
	}
	v := m.At(col, row)
	if m.IsNoData(v) {
		return 0, false
	}
	return v, true
}

// Bounds returns the raster extent in its own CRS.
func (m *CoverageMask) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, c := range [][2]float64{{0, 0}, {float64(m.Cols), 0}, {0, float64(m.Rows)}, {float64(m.Cols), float64(m.Rows)}} {
		x, y := m.Transform.Apply(c[0], c[1])
		b.Extend(geom.NewPointFlat(geom.XY, []float64{x, y}))
	}
	return b
}

// Binarize maps cells whose value is in classes to 1 and every other valid
// cell to 0. Nodata cells are kept. With no classes, any nonzero cell is 1.
func (m *CoverageMask) Binarize(classes []float64) *CoverageMask {
	set := make(map[float64]bool, len(classes))
	for _, c := range classes {
		set[c] = true
	}

	values := make([]float64, len(m.Values))
	for i, v := range m.Values {
		switch {
		case m.IsNoData(v):
			values[i] = v
		case len(set) == 0 && v != 0, set[v]:
			values[i] = 1
		default:
			values[i] = 0
		}
	}

	out := *m
	out.Values = values
	if m.src != nil {
		out.src = m.src.Binarize(classes)
	}
	return &out
}

// Crop returns the sub-grid covering bounds (given in the mask CRS). Cells
// partially inside bounds are kept. If bounds do not intersect the raster,
// Crop returns ErrNoOverlap.
func (m *CoverageMask) Crop(bounds *geom.Bounds) (*CoverageMask, error) {
	if bounds == nil || bounds.IsEmpty() {
		return nil, eris.Wrapf(ErrNoOverlap, "raster: %s: empty crop bounds", m.Name)
	}
	if !m.Bounds().Overlaps(geom.XY, bounds) {
		return nil, eris.Wrapf(ErrNoOverlap, "raster: %s", m.Name)
	}

	minCol, minRow := math.Inf(1), math.Inf(1)
	maxCol, maxRow := math.Inf(-1), math.Inf(-1)
	corners := [][2]float64{
		{bounds.Min(0), bounds.Min(1)}, {bounds.Max(0), bounds.Min(1)},
		{bounds.Min(0), bounds.Max(1)}, {bounds.Max(0), bounds.Max(1)},
	}
	for _, c := range corners {
		col, row, _ := m.Transform.Invert(c[0], c[1])
		minCol, maxCol = math.Min(minCol, col), math.Max(maxCol, col)
		minRow, maxRow = math.Min(minRow, row), math.Max(maxRow, row)
	}

	c0 := clamp(int(math.Floor(minCol)), 0, m.Cols)
	r0 := clamp(int(math.Floor(minRow)), 0, m.Rows)
	c1 := clamp(int(math.Ceil(maxCol)), 0, m.Cols)
	r1 := clamp(int(math.Ceil(maxRow)), 0, m.Rows)
	if c1 <= c0 || r1 <= r0 {
		return nil, eris.Wrapf(ErrNoOverlap, "raster: %s", m.Name)
	}

	cols, rows := c1-c0, r1-r0
	values := make([]float64, 0, cols*rows)
	for r := r0; r < r1; r++ {
		values = append(values, m.Values[r*m.Cols+c0:r*m.Cols+c1]...)
	}

	t := m.Transform
	t[0], t[3] = m.Transform.Apply(float64(c0), float64(r0))

	out := *m
	out.Cols, out.Rows = cols, rows
	out.Values = values
	out.Transform = t
	return &out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
