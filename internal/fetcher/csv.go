package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// DelimitedOptions configures ReadDelimited.
type DelimitedOptions struct {
	Delimiter rune // default ','
	Comment   rune
	Strict    bool // reject bare quotes inside unquoted fields
	TrimSpace bool
}

// ReadDelimited parses delimited text from r and calls fn for every record,
// header included, with the source line the record starts on. Rows may
// have differing field counts. The context is checked between records.
func ReadDelimited(ctx context.Context, r io.Reader, opts DelimitedOptions, fn RowFunc) error {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.Comment = opts.Comment
	cr.LazyQuotes = !opts.Strict
	cr.FieldsPerRecord = -1

	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "csv: context cancelled")
		}
		rec, err := cr.Read()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return eris.Wrap(err, "csv: read record")
		}
		line, _ := cr.FieldPos(0)
		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}
