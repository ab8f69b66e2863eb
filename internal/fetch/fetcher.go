package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies the crawler when no other agent is set.
	DefaultUserAgent = "campuscrawl/1.0"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultBackoff is the wait before the first retry. It doubles per retry.
	DefaultBackoff = 500 * time.Millisecond
)

// Response is the outcome of one Download.
type Response struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects. Relative links resolve against it.
	FinalURL string

	// Status is the HTTP status code, or 0 when no response arrived.
	Status int

	// ContentType is the Content-Type response header.
	ContentType string

	// Body is the response body, cut at the size limit.
	Body []byte

	// Err is set when the request failed or the body was cut.
	Err error

	// Attempts is the number of requests made.
	Attempts int
}

// OK reports whether the page was fetched completely with status 200.
func (r *Response) OK() bool {
	return r.Err == nil && r.Status == http.StatusOK
}

// Fetcher downloads pages with retries and rate limiting.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	retries     int
	backoff     time.Duration
	limiter     *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		f.retries = n
	}
}

// WithBackoff sets the wait before the first retry.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoff = d
	}
}

// WithRateLimit caps requests per second across all callers. Zero disables
// the limit.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// New creates a Fetcher that sends requests with client.
func New(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Download fetches rawURL. It is safe for concurrent use.
func (f *Fetcher) Download(ctx context.Context, rawURL string) *Response {
	var resp *Response
	wait := f.backoff

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				resp.Err = ctx.Err()
				return resp
			case <-timer.C:
			}
			wait *= 2
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return &Response{URL: rawURL, FinalURL: rawURL, Err: err, Attempts: attempt}
			}
		}

		resp = f.fetch(ctx, rawURL)
		resp.Attempts = attempt + 1
		if !retryable(ctx, resp) {
			return resp
		}
	}
	return resp
}

// retryable reports whether resp is a transient failure worth another try.
func retryable(ctx context.Context, resp *Response) bool {
	if ctx.Err() != nil {
		return false
	}
	if resp.Err != nil {
		return resp.Status == 0
	}
	return resp.Status >= http.StatusInternalServerError
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) *Response {
	resp := &Response{URL: rawURL, FinalURL: rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		resp.Err = fmt.Errorf("failed to create request: %w", err)
		return resp
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	httpResp, err := f.client.Do(req)
	if err != nil {
		resp.Err = err
		return resp
	}
	defer httpResp.Body.Close()

	resp.Status = httpResp.StatusCode
	resp.ContentType = httpResp.Header.Get("Content-Type")
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		resp.FinalURL = httpResp.Request.URL.String()
	}

	// Read one byte past the limit to tell a cut body from an exact fit.
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, f.maxBodySize+1))
	if err != nil && !errors.Is(err, io.EOF) {
		resp.Err = fmt.Errorf("failed to read body: %w", err)
		return resp
	}
	if int64(len(body)) > f.maxBodySize {
		resp.Body = body[:f.maxBodySize]
		resp.Err = ErrBodyTooLarge
		return resp
	}
	resp.Body = body
	return resp
}
