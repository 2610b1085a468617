package fetcher

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewDecodedReader returns a reader that decodes r from the named text
// encoding to UTF-8. A leading byte-order mark always wins over the named
// encoding and is stripped. Empty name means UTF-8.
func NewDecodedReader(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		enc = unicode.UTF8
	case "latin1", "iso-8859-1":
		enc = charmap.ISO8859_1
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	default:
		return nil, eris.Errorf("fetcher: unsupported text encoding %q", name)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}
