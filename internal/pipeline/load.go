package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/heritage-cli/internal/config"
	"github.com/sells-group/heritage-cli/internal/model"
	"github.com/sells-group/heritage-cli/internal/proj"
	"github.com/sells-group/heritage-cli/internal/raster"
	"github.com/sells-group/heritage-cli/internal/region"
	"github.com/sells-group/heritage-cli/internal/sites"
)

// referenceCRS is analysis.crs when set, else the protected-area mask CRS.
func (p *Pipeline) referenceCRS() (proj.CRS, error) {
	code := p.cfg.Analysis.CRS
	if code == "" {
		code = p.cfg.Masks.Protected.CRS
	}
	crs, err := proj.Lookup(code)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: reference crs")
	}
	return crs, nil
}

// region resolves the clip region. A bbox wins over a boundary file; with
// neither the run is global.
func (p *Pipeline) region(ctx context.Context) (*region.Region, error) {
	rc := p.cfg.Region
	switch {
	case len(rc.BBox) > 0:
		return region.FromBBox(rc.Name, rc.BBox)
	case rc.Boundary != "":
		path, err := p.resolver.ResolveExt(ctx, rc.Boundary, ".shp")
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: boundary")
		}
		return region.LoadBoundary(path, rc.NameField, rc.Name)
	default:
		return region.Global(), nil
	}
}

func (p *Pipeline) loadMask(ctx context.Context, mc config.MaskConfig) (*raster.CoverageMask, error) {
	crs, err := proj.Lookup(mc.CRS)
	if err != nil {
		return nil, err
	}
	path, err := p.resolver.ResolveExt(ctx, mc.Source, maskExts...)
	if err != nil {
		return nil, err
	}
	return raster.Load(path, crs, mc.NoData)
}

func (p *Pipeline) loadSites(ctx context.Context, crs proj.CRS) ([]model.Site, error) {
	sc := p.cfg.Sites
	path, err := p.resolver.ResolveExt(ctx, sc.Source, tableExts...)
	if err != nil {
		return nil, err
	}

	var delim rune
	if sc.Delimiter != "" {
		delim = []rune(sc.Delimiter)[0]
	}
	return sites.Load(ctx, path, sites.Options{
		Columns: sites.Columns{
			Name:      sc.Columns.Name,
			Category:  sc.Columns.Category,
			Area:      sc.Columns.Area,
			Country:   sc.Columns.Country,
			Longitude: sc.Columns.Longitude,
			Latitude:  sc.Columns.Latitude,
		},
		Category:  p.cfg.Analysis.CategoryFilter,
		Country:   p.cfg.Region.Country,
		CRS:       crs,
		Encoding:  sc.Encoding,
		Delimiter: delim,
		Sheet:     sc.Sheet,
	})
}

// prepareMask crops m to the region (in the mask CRS), binarizes it and
// reprojects it into the reference CRS.
func prepareMask(m *raster.CoverageMask, reg *region.Region, classes []float64, ref proj.CRS) (*raster.CoverageMask, error) {
	if !reg.IsGlobal() {
		b, err := proj.TransformBounds(proj.WGS84, m.CRS, reg.Bounds())
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: region %s bounds", reg.Name)
		}
		if m, err = m.Crop(b); err != nil {
			return nil, eris.Wrapf(err, "pipeline: crop to region %s", reg.Name)
		}
	}
	return raster.Reproject(m.Binarize(classes), ref)
}
