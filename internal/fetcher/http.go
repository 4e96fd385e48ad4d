package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/verdant-group/esg-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	RatePerSec  float64       // per-host request rate, default 2
	BackoffBase time.Duration // first retry delay, default 1s

	// BreakerThreshold consecutive transient failures open a host's
	// circuit for BreakerReset. Defaults 5 and 60s.
	BreakerThreshold int
	BreakerReset     time.Duration
}

// AdaptiveLimiter wraps a rate.Limiter that tunes itself to the remote
// host: each success raises the rate by 20% up to twice the initial rate,
// each 429 halves it down to a quarter of the initial rate.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an AdaptiveLimiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event or the context ends.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%, capped at twice the initial rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate after a 429, floored at a quarter of the
// initial rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("reducing request rate after 429", zap.Float64("new_rate", float64(newRate)))
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher downloads reports over HTTP with per-host adaptive rate
// limiting, retry on transient failures, and a per-host circuit breaker
// so a dead host cannot stall a long manifest.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	retry    resilience.RetryConfig
	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
	breakers map[string]*resilience.CircuitBreaker
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "esg-cli/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 60 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxRetries
	retry.InitialBackoff = opts.BackoffBase
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		retry:    retry,
		limiters: make(map[string]*AdaptiveLimiter),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

// limiterFor returns the host's limiter, creating it at the configured
// rate on first use.
func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	burst := int(math.Ceil(f.opts.RatePerSec))
	if burst < 1 {
		burst = 1
	}
	lim := NewAdaptiveLimiter(rate.Limit(f.opts.RatePerSec), burst)
	f.limiters[host] = lim
	return lim
}

// breakerFor returns the host's circuit breaker, creating it on first
// use. Only transient-class failures trip it; a 404 is the URL's
// problem, not the host's.
func (f *HTTPFetcher) breakerFor(host string) *resilience.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: f.opts.BreakerThreshold,
		ResetTimeout:     f.opts.BreakerReset,
		ShouldTrip:       resilience.IsTransient,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("fetcher: circuit state changed",
				zap.String("host", host),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	f.breakers[host] = cb
	return cb
}

// doWithRetry performs the request, retrying transient failures with
// backoff while feeding limiter adjustments from each response.
func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL.Host)

	retry := f.retry
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("fetcher: retrying request",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		if werr := lim.Wait(ctx); werr != nil {
			return nil, eris.Wrap(werr, "fetcher: rate limiter wait")
		}

		resp, derr := f.client.Do(req.Clone(ctx))
		if derr != nil {
			return nil, derr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			lim.OnRateLimit()
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: 429 from %s", req.URL.String()), resp.StatusCode)
		}
		if resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: %d from %s", resp.StatusCode, req.URL.String()), resp.StatusCode)
		}

		lim.OnSuccess()
		return resp, nil
	})
	if err != nil {
		if !resilience.IsTransient(err) {
			return nil, err
		}
		return nil, eris.Wrap(err, "fetcher: all retries exhausted")
	}
	return resp, nil
}

// Fetch downloads rawURL to dest, verifying the payload looks like a PDF
// before writing anything. Returns bytes written.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := resilience.ExecuteVal(ctx, f.breakerFor(req.URL.Host), func(ctx context.Context) (*http.Response, error) {
		return f.doWithRetry(ctx, req)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return 0, eris.Wrapf(err, "fetcher: host %s", req.URL.Host)
		}
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	magic := make([]byte, 4)
	n, err := io.ReadFull(resp.Body, magic)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, eris.Wrap(err, "fetcher: read response")
	}
	if !looksLikePDF(magic[:n], resp.Header.Get("Content-Type")) {
		return 0, eris.Errorf("fetcher: %s does not look like a PDF (content-type %q)", rawURL, resp.Header.Get("Content-Type"))
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}
	defer file.Close() //nolint:errcheck

	if _, err := file.Write(magic[:n]); err != nil {
		return 0, eris.Wrap(err, "fetcher: write file")
	}
	copied, err := io.Copy(file, resp.Body)
	written := int64(n) + copied
	if err != nil {
		return written, eris.Wrap(err, "fetcher: write file")
	}
	return written, nil
}

// looksLikePDF accepts a %PDF magic header or an application/pdf
// content type. ZIP bundles of reports are accepted too.
func looksLikePDF(magic []byte, contentType string) bool {
	if bytes.HasPrefix(magic, []byte("%PDF")) || bytes.HasPrefix(magic, []byte("PK\x03\x04")) {
		return true
	}
	return strings.Contains(contentType, "application/pdf") || strings.Contains(contentType, "application/zip")
}
