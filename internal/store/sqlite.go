package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/heritage-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	region         TEXT NOT NULL,
	params         TEXT NOT NULL,
	summary        TEXT NOT NULL,
	site_count     INTEGER NOT NULL,
	retained_count INTEGER NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_sites (
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	site_id       INTEGER NOT NULL,
	name          TEXT NOT NULL,
	country       TEXT NOT NULL,
	area_hectares REAL,
	area_raw      TEXT NOT NULL,
	lon           REAL NOT NULL,
	lat           REAL NOT NULL,
	wdpa_flag     INTEGER NOT NULL,
	urban_flag    INTEGER NOT NULL,
	retained      INTEGER NOT NULL,
	PRIMARY KEY (run_id, site_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_region ON runs(region);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, res *model.Result) error {
	if res.RunID == "" {
		return eris.New("sqlite: save run: missing run id")
	}
	run := runFromResult(res)

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal params")
	}
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, region, params, summary, site_count, retained_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Params.Region, string(paramsJSON), string(summaryJSON), run.SiteCount, run.RetainedCount, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_sites (run_id, site_id, name, country, area_hectares, area_raw, lon, lat, wdpa_flag, urban_flag, retained)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare site insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, site := range storedSites(res) {
		_, err := stmt.ExecContext(ctx,
			run.ID, site.ID, site.Name, site.Country, nullableArea(site.Area), site.Area.Raw,
			site.Lon, site.Lat, site.Protected, site.Urban, site.Retained,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert site %d of run %s", site.ID, run.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, params, summary, site_count, retained_count, created_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, params, summary, site_count, retained_count, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) ListSites(ctx context.Context, runID string) ([]model.StoredSite, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT site_id, name, country, area_hectares, area_raw, lon, lat, wdpa_flag, urban_flag, retained
		 FROM run_sites WHERE run_id = ? ORDER BY site_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list sites of run %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var sites []model.StoredSite
	for rows.Next() {
		var st model.StoredSite
		var area sql.NullFloat64
		var raw string
		if err := rows.Scan(&st.ID, &st.Name, &st.Country, &area, &raw, &st.Lon, &st.Lat,
			&st.Protected, &st.Urban, &st.Retained); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan site")
		}
		var v *float64
		if area.Valid {
			v = &area.Float64
		}
		st.Area = areaFrom(v, raw)
		sites = append(sites, st)
	}
	return sites, eris.Wrap(rows.Err(), "sqlite: list sites iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var paramsJSON, summaryJSON string

	err := row.Scan(&r.ID, &paramsJSON, &summaryJSON, &r.SiteCount, &r.RetainedCount, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal params")
	}
	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	return &r, nil
}
