package integrity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"git.home.luguber.info/inful/ditabuilder/internal/metrics"
)

const (
	DefaultProbeTimeout = 10 * time.Second
	DefaultCacheSize    = 1024
	DefaultCacheTTL     = 10 * time.Minute
	userAgent           = "ditabuilder-integrity/1.0"
)

// ProbeResult is the outcome of probing one URL.
type ProbeResult struct {
	Status int
	OK     bool
	Err    string
	// Canceled is set when the check's context ended before the probe completed.
	Canceled bool
}

// ProberOptions configures a Prober.
type ProberOptions struct {
	// Timeout bounds each probe independently of the overall check.
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second; zero means unlimited.
	RateLimit float64
	CacheSize int
	CacheTTL  time.Duration
	Client    *http.Client
	Recorder  metrics.Recorder
}

// Prober checks that external URLs respond. Results are cached so a URL referenced from
// many topics is requested once. A Prober is safe for concurrent use.
type Prober struct {
	client   *http.Client
	timeout  time.Duration
	limiter  *rate.Limiter
	cache    *expirable.LRU[string, ProbeResult]
	recorder metrics.Recorder
}

// NewProber creates a prober, applying defaults for zero options.
func NewProber(opts ProberOptions) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Client == nil {
		// Respects HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
		opts.Client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	return &Prober{
		client:   opts.Client,
		timeout:  opts.Timeout,
		limiter:  rate.NewLimiter(limit, 1),
		cache:    expirable.NewLRU[string, ProbeResult](opts.CacheSize, nil, opts.CacheTTL),
		recorder: opts.Recorder,
	}
}

// Probe requests url with HEAD, falling back to GET when the server rejects HEAD.
// 401, 403 and 405 count as reachable since they prove the resource exists.
func (p *Prober) Probe(ctx context.Context, url string) ProbeResult {
	if res, ok := p.cache.Get(url); ok {
		return res
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return ProbeResult{Err: err.Error(), Canceled: true}
	}

	started := time.Now()
	status, err := p.request(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = p.request(ctx, http.MethodGet, url)
	}
	res := ProbeResult{Status: status}
	switch {
	case err != nil:
		res.Err = err.Error()
		res.Canceled = ctx.Err() != nil
	case status < 400 || isAuthStatus(status):
		res.OK = true
	default:
		res.Err = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	p.recorder.ObserveProbe(probeLabel(res), time.Since(started))

	if !res.Canceled {
		p.cache.Add(url, res)
	}
	return res
}

func (p *Prober) request(ctx context.Context, method, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

// isAuthStatus reports statuses that indicate the resource exists behind access control.
func isAuthStatus(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusMethodNotAllowed:
		return true
	}
	return false
}

func probeLabel(res ProbeResult) string {
	if res.Status == 0 {
		return "error"
	}
	return fmt.Sprintf("%d", res.Status)
}
