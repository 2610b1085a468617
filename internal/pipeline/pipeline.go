// Package pipeline runs the heritage overlap analysis end to end:
// load, crop and reproject, sample, join, filter, aggregate.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/heritage-cli/internal/analysis"
	"github.com/sells-group/heritage-cli/internal/config"
	"github.com/sells-group/heritage-cli/internal/fetcher"
	"github.com/sells-group/heritage-cli/internal/model"
	"github.com/sells-group/heritage-cli/internal/overlap"
	"github.com/sells-group/heritage-cli/internal/proj"
	"github.com/sells-group/heritage-cli/internal/raster"
	"github.com/sells-group/heritage-cli/internal/region"
	"github.com/sells-group/heritage-cli/internal/store"
)

var (
	maskExts  = []string{".tif", ".tiff", ".asc", ".grd"}
	tableExts = []string{".csv", ".txt", ".tsv", ".xlsx"}
)

// Pipeline orchestrates one analysis run over a configured region.
type Pipeline struct {
	cfg      *config.Config
	resolver *fetcher.Resolver
	store    store.Store
}

// New creates a Pipeline. st may be nil, in which case runs are not saved.
func New(cfg *config.Config, resolver *fetcher.Resolver, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		resolver: resolver,
		store:    st,
	}
}

// sampled is the state after sampling and the join.
type sampled struct {
	region *region.Region
	crs    proj.CRS
	sites  []model.SiteOverlap
}

// Run executes the full pipeline and returns the run result. When the
// pipeline has a store the result is saved before returning.
func (p *Pipeline) Run(ctx context.Context) (*model.Result, error) {
	start := time.Now()
	res := &model.Result{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
	}
	log := zap.L().With(zap.String("run_id", res.RunID))
	log.Info("pipeline: starting run")

	s, err := p.sample(ctx, log)
	if err != nil {
		return nil, err
	}
	res.Params = p.params(s)
	res.Sites = s.sites

	err = p.stage(log, "aggregate", func() error {
		res.Retained = analysis.Filter(s.sites, p.cfg.Analysis.MinAreaHectares)
		summary, err := analysis.Aggregate(res.Retained)
		if err != nil {
			return err
		}
		res.Summary = *summary
		res.LargeGroups = analysis.LargeGroups(summary.Countries, p.cfg.Analysis.MinGroupSize)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: region %s", s.region.Name)
	}
	res.Duration = time.Since(start)

	if p.store != nil {
		if err := p.store.SaveRun(ctx, res); err != nil {
			return nil, eris.Wrap(err, "pipeline: save run")
		}
	}

	log.Info("pipeline: run complete",
		zap.String("region", s.region.Name),
		zap.Int("sites", len(res.Sites)),
		zap.Int("retained", len(res.Retained)),
		zap.Int("countries", len(res.Summary.Countries)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Sample runs the pipeline up to the join and returns every site with its
// resolved coverage flags.
func (p *Pipeline) Sample(ctx context.Context) ([]model.SiteOverlap, error) {
	s, err := p.sample(ctx, zap.L())
	if err != nil {
		return nil, err
	}
	return s.sites, nil
}

func (p *Pipeline) sample(ctx context.Context, log *zap.Logger) (*sampled, error) {
	ref, err := p.referenceCRS()
	if err != nil {
		return nil, err
	}

	reg, err := p.region(ctx)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("region", reg.Name), zap.String("crs", ref.Code()))

	var (
		protected, urban *raster.CoverageMask
		sites            []model.Site
	)
	err = p.stage(log, "load", func() error {
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			m, err := p.loadMask(gCtx, p.cfg.Masks.Protected)
			protected = m
			return eris.Wrap(err, "pipeline: protected-area mask")
		})
		g.Go(func() error {
			m, err := p.loadMask(gCtx, p.cfg.Masks.Urban)
			urban = m
			return eris.Wrap(err, "pipeline: urban mask")
		})
		g.Go(func() error {
			s, err := p.loadSites(gCtx, ref)
			sites = s
			return eris.Wrap(err, "pipeline: sites")
		})
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(log, "prepare masks", func() error {
		var err error
		if protected, err = prepareMask(protected, reg, p.cfg.Masks.Protected.TrueCodes, ref); err != nil {
			return err
		}
		urban, err = prepareMask(urban, reg, p.cfg.Masks.Urban.TrueCodes, ref)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resolved []model.SiteOverlap
	err = p.stage(log, "classify", func() error {
		pr := overlap.Classify(protected, model.LayerProtected, sites)
		ur := overlap.Classify(urban, model.LayerUrban, sites)
		joined, err := analysis.Join(sites, pr, ur)
		if err != nil {
			return err
		}
		var absent int
		resolved, absent = analysis.ResolveAbsent(joined)
		log.Debug("pipeline: joined overlap records",
			zap.Int("sites", len(sites)),
			zap.Int("protected", overlap.CountCovered(pr)),
			zap.Int("urban", overlap.CountCovered(ur)),
			zap.Int("absent_flags", absent),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &sampled{region: reg, crs: ref, sites: resolved}, nil
}

// stage runs fn and logs its duration.
func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	if err != nil {
		log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return err
	}
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Duration("duration", elapsed),
	)
	return nil
}

func (p *Pipeline) params(s *sampled) model.Params {
	return model.Params{
		Region:          s.region.Name,
		CRS:             s.crs.Code(),
		MinAreaHectares: p.cfg.Analysis.MinAreaHectares,
		MinGroupSize:    p.cfg.Analysis.MinGroupSize,
		CategoryFilter:  p.cfg.Analysis.CategoryFilter,
		Country:         p.cfg.Region.Country,
	}
}
