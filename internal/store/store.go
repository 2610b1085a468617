// Package store persists run history: run parameters, summaries and the
// per-site overlap flags of each run.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/heritage-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Region string `json:"region,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// SaveRun stores a completed run and all of its sites.
	SaveRun(ctx context.Context, res *model.Result) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// ListSites returns the sites of a run ordered by site id.
	ListSites(ctx context.Context, runID string) ([]model.StoredSite, error)

	Migrate(ctx context.Context) error
	Close() error
}

// runFromResult builds the history row for a result.
func runFromResult(res *model.Result) model.Run {
	created := res.StartedAt.UTC()
	return model.Run{
		ID:            res.RunID,
		Params:        res.Params,
		Summary:       res.Summary,
		SiteCount:     len(res.Sites),
		RetainedCount: len(res.Retained),
		CreatedAt:     created,
	}
}

// storedSites marks each site of a result as retained or not.
func storedSites(res *model.Result) []model.StoredSite {
	retained := make(map[int]bool, len(res.Retained))
	for _, s := range res.Retained {
		retained[s.ID] = true
	}
	out := make([]model.StoredSite, len(res.Sites))
	for i, s := range res.Sites {
		out[i] = model.StoredSite{SiteOverlap: s, Retained: retained[s.ID]}
	}
	return out
}

// nullableArea returns the area value, or nil when it is invalid.
func nullableArea(h model.Hectares) any {
	if !h.Valid {
		return nil
	}
	return h.Value
}

// areaFrom rebuilds a Hectares from a nullable column and the raw text.
func areaFrom(value *float64, raw string) model.Hectares {
	if value == nil {
		return model.Hectares{Raw: raw}
	}
	return model.Hectares{Value: *value, Valid: true, Raw: raw}
}
