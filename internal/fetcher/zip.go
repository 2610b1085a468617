package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// maxEntryBytes caps a single extracted file. Global land-cover rasters
// are large but well under this.
const maxEntryBytes = 8 << 30

// ExtractZIP unpacks the archive at zipPath into destDir and returns the
// written file paths in archive order. Directory entries and macOS
// resource-fork metadata are skipped.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open archive %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var written []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() || isArchiveMetadata(f.Name) {
			continue
		}
		dst, err := entryPath(destDir, f.Name)
		if err != nil {
			return written, err
		}
		if err := writeEntry(f, dst); err != nil {
			return written, eris.Wrapf(err, "zip: %s: entry %s", zipPath, f.Name)
		}
		written = append(written, dst)
	}
	return written, nil
}

// FindByExt returns the first path with the highest-priority extension:
// exts are tried in order, so FindByExt(p, ".tif", ".asc") prefers a
// GeoTIFF over an ASCII grid. Matching is case-insensitive. With no exts
// the first path is returned.
func FindByExt(paths []string, exts ...string) (string, bool) {
	if len(exts) == 0 {
		if len(paths) == 0 {
			return "", false
		}
		return paths[0], true
	}
	for _, want := range exts {
		for _, p := range paths {
			if strings.EqualFold(filepath.Ext(p), want) {
				return p, true
			}
		}
	}
	return "", false
}

func isArchiveMetadata(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}

// entryPath resolves an archive entry name under destDir, rejecting names
// that escape it.
func entryPath(destDir, name string) (string, error) {
	root := filepath.Clean(destDir)
	dst := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: entry %q escapes %s (zip slip)", name, destDir)
	}
	return dst, nil
}

func writeEntry(f *zip.File, dst string) error {
	if f.UncompressedSize64 > maxEntryBytes {
		return eris.Errorf("uncompressed size %d exceeds limit", f.UncompressedSize64)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrap(err, "create parent directory")
	}

	src, err := f.Open()
	if err != nil {
		return eris.Wrap(err, "open")
	}
	defer src.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	n, err := io.Copy(out, io.LimitReader(src, maxEntryBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return eris.Wrap(err, "write file")
	}
	if n > maxEntryBytes {
		return eris.New("entry exceeds size limit")
	}
	return nil
}
