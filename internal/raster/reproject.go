package raster

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/heritage-cli/internal/proj"
)

// maxReprojectCells bounds the resampled grid. Point sampling reads the
// source mask, so a coarser grid only affects Values.
const maxReprojectCells = 1 << 26

// Reproject returns m expressed in crs. The result holds a north-up
// nearest-neighbour resample whose cells are no larger than the smallest
// projected source cell, and keeps m as its source: Sample maps the point
// back into m's CRS and reads m, so lookups are exact. Target cells outside
// the source raster are NaN. A mask already in crs is returned unchanged.
func Reproject(m *CoverageMask, crs proj.CRS) (*CoverageMask, error) {
	if proj.Same(m.CRS, crs) {
		return m, nil
	}

	b, err := proj.TransformBounds(m.CRS, crs, m.Bounds())
	if err != nil {
		return nil, eris.Wrapf(err, "raster: reproject %s", m.Name)
	}
	width, height := b.Max(0)-b.Min(0), b.Max(1)-b.Min(1)
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("raster: reproject %s: degenerate extent in %s", m.Name, crs.Code())
	}

	cellW, cellH := finestCell(m, crs)
	cols := max(1, int(math.Ceil(width/cellW)))
	rows := max(1, int(math.Ceil(height/cellH)))
	if n := float64(cols) * float64(rows); n > maxReprojectCells {
		f := math.Sqrt(n / maxReprojectCells)
		cols = max(1, int(float64(cols)/f))
		rows = max(1, int(float64(rows)/f))
	}
	t := NorthUp(b.Min(0), b.Max(1), width/float64(cols), height/float64(rows))

	values := make([]float64, cols*rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x, y := t.Apply(float64(col)+0.5, float64(row)+0.5)
			sx, sy := proj.Transform(crs, m.CRS, x, y)
			values[row*cols+col] = math.NaN()
			if c, r, ok := m.Cell(sx, sy); ok {
				values[row*cols+col] = m.At(c, r)
			}
		}
	}

	out, err := New(m.Name, cols, rows, values, t, crs, m.NoData)
	if err != nil {
		return nil, err
	}
	out.src = m
	if m.src != nil {
		out.src = m.src
	}
	return out, nil
}

// finestCell returns the smallest projected width and height of m's cells,
// measured across a lattice of source cells that includes every edge.
func finestCell(m *CoverageMask, crs proj.CRS) (w, h float64) {
	w, h = math.Inf(1), math.Inf(1)
	for _, r := range lattice(m.Rows) {
		for _, c := range lattice(m.Cols) {
			fc, fr := float64(c), float64(r)
			x0, _ := project(m, crs, fc, fr+0.5)
			x1, _ := project(m, crs, fc+1, fr+0.5)
			_, y0 := project(m, crs, fc+0.5, fr)
			_, y1 := project(m, crs, fc+0.5, fr+1)
			if d := math.Abs(x1 - x0); d > 0 && !math.IsInf(d, 0) {
				w = math.Min(w, d)
			}
			if d := math.Abs(y1 - y0); d > 0 && !math.IsInf(d, 0) {
				h = math.Min(h, d)
			}
		}
	}
	return w, h
}

func project(m *CoverageMask, crs proj.CRS, col, row float64) (float64, float64) {
	x, y := m.Transform.Apply(col, row)
	return proj.Transform(m.CRS, crs, x, y)
}

// lattice picks up to 65 indices spread over [0, n), always including both
// ends.
func lattice(n int) []int {
	step := max(1, n/64)
	var idx []int
	for i := 0; i < n; i += step {
		idx = append(idx, i)
	}
	if idx[len(idx)-1] != n-1 {
		idx = append(idx, n-1)
	}
	return idx
}
