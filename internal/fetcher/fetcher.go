// Package fetcher resolves input sources (local paths, HTTP, FTP, ZIP
// archives) to local files and reads delimited text and XLSX tables.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Fetcher retrieves a remote source by URL.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// copyToFile streams body into path via a sibling temp file, so a failed
// transfer never leaves a truncated file at path.
func copyToFile(body io.Reader, path string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".part-*")
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
