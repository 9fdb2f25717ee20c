package fetcher

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	BackoffBase  time.Duration
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements Fetcher using net/http with retry and per-host
// rate limiting.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "lotes-cli/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
	}
}

// limiterFor returns the host's limiter, creating a default one on first use
// so repeated downloads from one host share a budget.
func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(5, 5)
		f.limiters[host] = lim
	}
	return lim
}

// retryable reports whether a response status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// retryAfter reads a Retry-After header given in seconds. Zero means absent
// or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// get issues req until it yields a non-retryable response or the attempts
// run out. Every attempt first waits on the host's limiter.
func (f *HTTPFetcher) get(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL.String())
	log := zap.L().With(zap.String("component", "fetcher.http"), zap.String("url", req.URL.Redacted()))

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if attempt > 0 {
			log.Warn("http: retrying", zap.Int("attempt", attempt+1), zap.Error(lastErr))
		}
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			f.sleep(ctx, f.delay(attempt, 0))
			continue
		}
		if !retryable(resp.StatusCode) {
			return resp, nil
		}

		_ = resp.Body.Close()
		lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.Redacted())
		f.sleep(ctx, f.delay(attempt, retryAfter(resp)))
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

// delay is exponential in attempt with up to 50% jitter, capped at 30s. A
// server-provided hint replaces the computed delay when it is longer.
func (f *HTTPFetcher) delay(attempt int, hint time.Duration) time.Duration {
	const maxDelay = 30 * time.Second
	d := min(f.opts.BackoffBase<<attempt, maxDelay)
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	if hint > d {
		d = min(hint, maxDelay)
	}
	return d
}

func (f *HTTPFetcher) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/geo+json, application/json, application/zip, */*")

	resp, err := f.get(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return resp.Body, nil
}
