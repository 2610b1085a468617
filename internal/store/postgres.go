package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/heritage-cli/internal/db"
	"github.com/sells-group/heritage-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// postgresMigration keeps each site position in location_ewkb as an EWKB
// point (SRID 4326), readable with ST_GeomFromEWKB.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	region         TEXT NOT NULL,
	params         JSONB NOT NULL,
	summary        JSONB NOT NULL,
	site_count     INTEGER NOT NULL,
	retained_count INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_sites (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	site_id       INTEGER NOT NULL,
	name          TEXT NOT NULL,
	country       TEXT NOT NULL,
	area_hectares DOUBLE PRECISION,
	area_raw      TEXT NOT NULL,
	lon           DOUBLE PRECISION NOT NULL,
	lat           DOUBLE PRECISION NOT NULL,
	location_ewkb BYTEA NOT NULL,
	wdpa_flag     BOOLEAN NOT NULL,
	urban_flag    BOOLEAN NOT NULL,
	retained      BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, site_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_region ON runs(region);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

var runSiteColumns = []string{
	"run_id", "site_id", "name", "country", "area_hectares", "area_raw",
	"lon", "lat", "location_ewkb", "wdpa_flag", "urban_flag", "retained",
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, res *model.Result) error {
	if res.RunID == "" {
		return eris.New("postgres: save run: missing run id")
	}
	run := runFromResult(res)

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal params")
	}
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	sites := storedSites(res)
	rows := make([][]any, 0, len(sites))
	for _, site := range sites {
		loc, err := pointEWKB(site.Lon, site.Lat)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode location of site %d", site.ID)
		}
		rows = append(rows, []any{
			run.ID, site.ID, site.Name, site.Country, nullableArea(site.Area), site.Area.Raw,
			site.Lon, site.Lat, loc, site.Protected, site.Urban, site.Retained,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, region, params, summary, site_count, retained_count, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Params.Region, paramsJSON, summaryJSON, run.SiteCount, run.RetainedCount, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	if _, err := db.CopyFrom(ctx, tx, "run_sites", runSiteColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy sites of run %s", run.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, params, summary, site_count, retained_count, created_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, params, summary, site_count, retained_count, created_at FROM runs
		 WHERE ($1 = '' OR region = $1)
		 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		filter.Region, limit, max(filter.Offset, 0),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListSites(ctx context.Context, runID string) ([]model.StoredSite, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT site_id, name, country, area_hectares, area_raw, location_ewkb, wdpa_flag, urban_flag, retained
		 FROM run_sites WHERE run_id = $1 ORDER BY site_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list sites of run %s", runID)
	}
	defer rows.Close()

	var sites []model.StoredSite
	for rows.Next() {
		var st model.StoredSite
		var area *float64
		var raw string
		var loc []byte
		if err := rows.Scan(&st.ID, &st.Name, &st.Country, &area, &raw, &loc,
			&st.Protected, &st.Urban, &st.Retained); err != nil {
			return nil, eris.Wrap(err, "postgres: scan site")
		}
		if st.Lon, st.Lat, err = decodePointEWKB(loc); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode location of site %d", st.ID)
		}
		st.Area = areaFrom(area, raw)
		sites = append(sites, st)
	}
	return sites, eris.Wrap(rows.Err(), "postgres: list sites iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var paramsJSON, summaryJSON []byte

	err := row.Scan(&r.ID, &paramsJSON, &summaryJSON, &r.SiteCount, &r.RetainedCount, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal params")
	}
	if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal summary")
	}
	return &r, nil
}

// pointEWKB encodes a WGS84 position as a little-endian EWKB point.
func pointEWKB(lon, lat float64) ([]byte, error) {
	p := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	return ewkb.Marshal(p, ewkb.NDR)
}

func decodePointEWKB(b []byte) (lon, lat float64, err error) {
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return 0, 0, eris.Wrap(err, "unmarshal ewkb")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, eris.Errorf("expected point, got %T", g)
	}
	return p.X(), p.Y(), nil
}
