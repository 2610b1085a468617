package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxRetryDelay = 30 * time.Second

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// BaseBackoff is the delay before the first retry; it doubles per attempt.
	BaseBackoff time.Duration
	// HostRate is the request rate (per second) for hosts not listed in Hosts.
	HostRate float64
	// Hosts overrides the request rate of individual hosts.
	Hosts map[string]float64
}

// DefaultHostRates lists request rates for the hosts serving the heritage
// list, protected-area, land-cover and boundary datasets.
func DefaultHostRates() map[string]float64 {
	return map[string]float64{
		"whc.unesco.org":          2,
		"api.protectedplanet.net": 2,
		"naciscdn.org":            5,
		"jeodpp.jrc.ec.europa.eu": 5,
	}
}

// HostLimiter throttles requests to one host. The rate halves on 429
// responses and grows by a fifth on success, staying within a quarter and
// double the base rate.
type HostLimiter struct {
	mu   sync.Mutex
	base rate.Limit
	lim  *rate.Limiter
}

// NewHostLimiter creates a limiter allowing perSecond requests.
func NewHostLimiter(perSecond float64) *HostLimiter {
	burst := max(1, int(perSecond))
	return &HostLimiter{
		base: rate.Limit(perSecond),
		lim:  rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Wait blocks until a request is allowed.
func (h *HostLimiter) Wait(ctx context.Context) error {
	return h.lim.Wait(ctx)
}

// Rate returns the current rate.
func (h *HostLimiter) Rate() rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lim.Limit()
}

func (h *HostLimiter) scale(factor float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := min(max(h.lim.Limit()*rate.Limit(factor), h.base/4), h.base*2)
	h.lim.SetLimit(next)
}

// HTTPFetcher downloads over HTTP(S) with per-host throttling and retries
// on transport errors, 429 and 5xx responses.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu    sync.Mutex
	hosts map[string]*HostLimiter
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with
// defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.HostRate == 0 {
		opts.HostRate = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "heritage-cli/1.0"
	}

	rates := DefaultHostRates()
	for host, r := range opts.Hosts {
		rates[host] = r
	}
	hosts := make(map[string]*HostLimiter, len(rates))
	for host, r := range rates {
		hosts[host] = NewHostLimiter(r)
	}

	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		hosts:  hosts,
	}
}

// limiter returns the limiter for the host of rawURL, creating one at the
// default rate on first use.
func (f *HTTPFetcher) limiter(rawURL string) *HostLimiter {
	var host string
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hosts[host]
	if !ok {
		h = NewHostLimiter(f.opts.HostRate)
		f.hosts[host] = h
	}
	return h
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	lim := f.limiter(rawURL)

	var (
		lastErr    error
		retryAfter time.Duration
	)
	for attempt := range f.opts.MaxRetries {
		if attempt > 0 {
			if err := sleep(ctx, f.retryDelay(attempt, retryAfter)); err != nil {
				return nil, eris.Wrap(err, "wait before retry")
			}
		}
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			retryAfter = 0
			zap.L().Warn("fetcher: request failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			lim.scale(1.2)
			return resp, nil
		}

		_ = resp.Body.Close()
		lastErr = eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
		retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		if resp.StatusCode == http.StatusTooManyRequests {
			lim.scale(0.5)
		}
		zap.L().Warn("fetcher: retryable response",
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Float64("host_rate", float64(lim.Rate())),
		)
	}

	return nil, eris.Wrapf(lastErr, "giving up after %d attempts", f.opts.MaxRetries)
}

// retryDelay is the exponential backoff for attempt, raised to the
// server's Retry-After hint and capped at maxRetryDelay.
func (f *HTTPFetcher) retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	d := f.opts.BaseBackoff << min(attempt-1, 30)
	return min(max(d, retryAfter), maxRetryDelay)
}

// parseRetryAfter reads a delay-seconds Retry-After value. HTTP dates are
// ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Download fetches rawURL and returns the response body. Any final status
// other than 200 is an error.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "download %s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

// DownloadToFile fetches rawURL into path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return copyToFile(body, path)
}
