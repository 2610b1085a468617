package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	TempDir    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// HostRate is the HTTP request rate per host, per second.
	HostRate float64
}

// Resolver turns a configured source (local path, http(s) URL or ftp URL,
// optionally a .zip archive) into a local file path.
type Resolver struct {
	tempDir  string
	fetchers map[string]Fetcher
}

// NewResolver creates a Resolver backed by the HTTP and FTP fetchers.
func NewResolver(opts ResolverOptions) *Resolver {
	if opts.TempDir == "" {
		opts.TempDir = filepath.Join(os.TempDir(), "heritage")
	}
	httpF := NewHTTPFetcher(HTTPOptions{
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
		HostRate:   opts.HostRate,
	})
	return &Resolver{
		tempDir: opts.TempDir,
		fetchers: map[string]Fetcher{
			"http":  httpF,
			"https": httpF,
			"ftp":   NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
		},
	}
}

// WithFetcher overrides the fetcher used for a URL scheme.
func (r *Resolver) WithFetcher(scheme string, f Fetcher) *Resolver {
	r.fetchers[strings.ToLower(scheme)] = f
	return r
}

// Resolve returns a local path for src. Archives resolve to their first file.
func (r *Resolver) Resolve(ctx context.Context, src string) (string, error) {
	return r.ResolveExt(ctx, src)
}

// ResolveExt returns a local path for src. When src is a .zip archive it is
// extracted and the first entry whose extension is one of exts is returned.
func (r *Resolver) ResolveExt(ctx context.Context, src string, exts ...string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", eris.New("fetcher: empty source")
	}

	local, err := r.localize(ctx, src)
	if err != nil {
		return "", err
	}

	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	dest := filepath.Join(r.tempDir, strings.TrimSuffix(filepath.Base(local), filepath.Ext(local)))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", eris.Wrapf(err, "fetcher: create %s", dest)
	}
	files, err := ExtractZIP(local, dest)
	if err != nil {
		return "", err
	}
	found, ok := FindByExt(files, exts...)
	if !ok {
		return "", eris.Errorf("fetcher: no %v file in archive %s", exts, src)
	}

	zap.L().Debug("fetcher: extracted archive",
		zap.String("archive", local),
		zap.Int("files", len(files)),
		zap.String("selected", found),
	)
	return found, nil
}

// localize downloads remote sources into the temp dir and checks that
// local sources exist.
func (r *Resolver) localize(ctx context.Context, src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path, or a Windows drive letter.
		if _, err := os.Stat(src); err != nil {
			return "", eris.Wrapf(err, "fetcher: source %s", src)
		}
		return src, nil
	}

	f, ok := r.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return "", eris.Errorf("fetcher: unsupported scheme %q in %s", u.Scheme, src)
	}

	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "fetcher: create %s", r.tempDir)
	}
	dest := filepath.Join(r.tempDir, downloadName(u))

	start := time.Now()
	n, err := f.DownloadToFile(ctx, src, dest)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: source %s", src)
	}

	zap.L().Info("fetcher: downloaded source",
		zap.String("url", src),
		zap.String("path", dest),
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return dest, nil
}

// downloadName derives a local file name from a URL, keeping the
// extension so format dispatch still works.
func downloadName(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "download"
	}
	host := strings.NewReplacer(":", "_", ".", "_").Replace(u.Host)
	if host == "" {
		return base
	}
	return host + "_" + base
}
