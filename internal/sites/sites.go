// Package sites loads the heritage-site point table.
package sites

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/heritage-cli/internal/fetcher"
	"github.com/sells-group/heritage-cli/internal/model"
	"github.com/sells-group/heritage-cli/internal/proj"
)

// Columns maps site attributes to source column headers. Matching is
// case-insensitive.
type Columns struct {
	Name      string
	Category  string
	Area      string
	Country   string
	Longitude string
	Latitude  string
}

// Options configures a load.
type Options struct {
	Columns Columns
	// Category keeps rows whose category equals it after trimming.
	Category string
	// Country, when set, keeps only rows of that country.
	Country string
	// CRS is the reference system site positions are projected into.
	// Nil means EPSG:4326.
	CRS proj.CRS
	// Encoding of delimited text sources; empty means UTF-8.
	Encoding string
	// Delimiter of delimited text sources; zero means ',' (tab for .tsv).
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

type columnIndex struct {
	name, category, area, country, lon, lat int
}

// Load reads the site table at path and returns the matching sites with
// ids 1..N in input order. Malformed coordinates are a load error naming
// the row; malformed areas are kept as invalid Hectares.
func Load(ctx context.Context, path string, opts Options) ([]model.Site, error) {
	if opts.CRS == nil {
		opts.CRS = proj.WGS84
	}

	l := &loader{path: path, opts: opts}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		err = l.readXLSX()
	case ".csv", ".txt", ".tsv":
		err = l.readDelimited(ctx)
	default:
		return nil, eris.Errorf("sites: unsupported table format %q for %s", filepath.Ext(path), path)
	}
	if err != nil {
		return nil, err
	}
	if l.idx == nil {
		return nil, eris.Errorf("sites: %s has no header row", path)
	}

	zap.L().Info("sites: loaded table",
		zap.String("path", path),
		zap.Int("rows", l.rows),
		zap.Int("kept", len(l.sites)),
		zap.String("category", opts.Category),
		zap.String("country", opts.Country),
	)
	return l.sites, nil
}

type loader struct {
	path  string
	opts  Options
	idx   *columnIndex
	rows  int
	sites []model.Site
}

func (l *loader) readXLSX() error {
	if err := fetcher.EachXLSXRow(l.path, l.opts.Sheet, l.handle); err != nil {
		return eris.Wrap(err, "sites: read table")
	}
	return nil
}

func (l *loader) readDelimited(ctx context.Context) error {
	f, err := os.Open(l.path)
	if err != nil {
		return eris.Wrapf(err, "sites: open %s", l.path)
	}
	defer f.Close() //nolint:errcheck

	r, err := fetcher.NewDecodedReader(f, l.opts.Encoding)
	if err != nil {
		return eris.Wrap(err, "sites: decode")
	}

	delim := l.opts.Delimiter
	if delim == 0 && strings.EqualFold(filepath.Ext(l.path), ".tsv") {
		delim = '\t'
	}

	err = fetcher.ReadDelimited(ctx, r, fetcher.DelimitedOptions{Delimiter: delim}, l.handle)
	if err != nil {
		return eris.Wrapf(err, "sites: read %s", l.path)
	}
	return nil
}

// handle consumes one source row. Blank rows are skipped; the first
// non-blank row is the header.
func (l *loader) handle(line int, fields []string) error {
	if isBlank(fields) {
		return nil
	}
	if l.idx == nil {
		idx, err := l.header(fields)
		if err != nil {
			return err
		}
		l.idx = idx
		return nil
	}
	l.rows++

	if strings.TrimSpace(cell(fields, l.idx.category)) != strings.TrimSpace(l.opts.Category) {
		return nil
	}
	country := strings.TrimSpace(cell(fields, l.idx.country))
	if l.opts.Country != "" && country != strings.TrimSpace(l.opts.Country) {
		return nil
	}

	name := strings.TrimSpace(cell(fields, l.idx.name))
	lon, err := parseCoord(cell(fields, l.idx.lon), 180)
	if err != nil {
		return eris.Wrapf(err, "sites: %s row %d (%q): longitude", l.path, line, name)
	}
	lat, err := parseCoord(cell(fields, l.idx.lat), 90)
	if err != nil {
		return eris.Wrapf(err, "sites: %s row %d (%q): latitude", l.path, line, name)
	}

	x, y := l.opts.CRS.Forward(lon, lat)
	l.sites = append(l.sites, model.Site{
		ID:      len(l.sites) + 1,
		Name:    name,
		Country: country,
		Area:    model.ParseHectares(strings.TrimSpace(cell(fields, l.idx.area))),
		Lon:     lon,
		Lat:     lat,
		X:       x,
		Y:       y,
	})
	return nil
}

func (l *loader) header(fields []string) (*columnIndex, error) {
	find := func(col string) (int, error) {
		want := strings.ToLower(strings.TrimSpace(col))
		for i, f := range fields {
			if strings.ToLower(strings.TrimSpace(f)) == want {
				return i, nil
			}
		}
		return -1, eris.Errorf("sites: column %q not found in %s", col, l.path)
	}

	c := l.opts.Columns
	var idx columnIndex
	var err error
	for _, m := range []struct {
		col string
		dst *int
	}{
		{c.Name, &idx.name},
		{c.Category, &idx.category},
		{c.Area, &idx.area},
		{c.Country, &idx.country},
		{c.Longitude, &idx.lon},
		{c.Latitude, &idx.lat},
	} {
		if *m.dst, err = find(m.col); err != nil {
			return nil, err
		}
	}
	return &idx, nil
}

func parseCoord(raw string, limit float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, eris.New("missing value")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("not a number: %q", raw)
	}
	if math.Abs(v) > limit {
		return 0, eris.Errorf("%v out of range [-%v, %v]", v, limit, limit)
	}
	return v, nil
}

func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
