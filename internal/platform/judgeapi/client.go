// Package judgeapi fetches submission pages from the judge's public API.
// Every request goes through a Throttle; transient failures are retried by
// an explicit bounded loop so the retry budget is observable and testable.
package judgeapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"judge_mirror/internal/common"
	"judge_mirror/internal/platform/metrics"

	"github.com/rs/zerolog"
)

type Options struct {
	BaseURL     string
	PagePath    string // appended to BaseURL, "{from}" is replaced by the epoch second
	UserAgent   string
	Timeout     time.Duration
	MinInterval time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	HTTPClient  *http.Client // optional
	Logger      zerolog.Logger
}

type Client struct {
	baseURL     string
	pagePath    string
	userAgent   string
	http        *http.Client
	throttle    *Throttle
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	log         zerolog.Logger

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("judgeapi: BaseURL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("judgeapi: invalid BaseURL: %w", err)
	}
	path := opts.PagePath
	if path == "" {
		path = "/v3/from/{from}"
	}
	if !strings.Contains(path, "{from}") {
		return nil, fmt.Errorf("judgeapi: PagePath %q lacks {from}", path)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "judge-mirror/1.0"
	}
	return &Client{
		baseURL:     base,
		pagePath:    path,
		userAgent:   ua,
		http:        hc,
		throttle:    NewThrottle(opts.MinInterval),
		maxAttempts: attempts,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		log:         opts.Logger,
		sleep:       sleepCtx,
	}, nil
}

// PageURL builds the request URL for a page.
func (c *Client) PageURL(req PageRequest) string {
	return c.baseURL + strings.ReplaceAll(c.pagePath, "{from}", strconv.FormatInt(req.FromEpochSecond, 10))
}

// Fetch performs a single throttled GET and returns the body of a 2xx
// response. Errors wrap common.ErrTransient or common.ErrFatal.
func (c *Client) Fetch(ctx context.Context, u string) ([]byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	defer c.throttle.Done()

	start := time.Now()
	body, err := c.doGET(ctx, u)
	switch {
	case err == nil:
		metrics.RecordRequest("ok", time.Since(start))
	case common.IsRetryable(err):
		metrics.RecordRequest("transient", time.Since(start))
	default:
		metrics.RecordRequest("fatal", time.Since(start))
	}
	return body, err
}

func (c *Client) doGET(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %v: %w", u, err, common.ErrFatal)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("GET %s: %v: %w", u, err, common.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, &common.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, RetryAfter: retryAfter}
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %v: %w", u, err, common.ErrTransient)
	}
	return body, nil
}

// parseRetryAfter reads a Retry-After header given either as delay-seconds
// or as an HTTP date. It returns 0 when the header is absent or unusable.
func parseRetryAfter(v string, now time.Time) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(secs, 0)
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0
	}
	wait := at.Sub(now)
	if wait <= 0 {
		return 0
	}
	return int((wait + time.Second - 1) / time.Second)
}

// Backoff returns the wait before retry number attempt (1-based).
func (c *Client) Backoff(attempt int) time.Duration {
	if attempt < 1 || c.baseBackoff <= 0 {
		return 0
	}
	d := c.baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if c.maxBackoff > 0 && d >= c.maxBackoff {
			return c.maxBackoff
		}
	}
	if c.maxBackoff > 0 && d > c.maxBackoff {
		return c.maxBackoff
	}
	return d
}

// FetchWithRetry retries transient failures up to MaxAttempts total
// attempts. Exhausting the budget yields an error wrapping common.ErrFatal
// and the last cause.
func (c *Client) FetchWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.Fetch(ctx, u)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil || !common.IsRetryable(err) {
			return nil, err
		}
		if attempt == c.maxAttempts {
			break
		}

		wait := c.Backoff(attempt)
		var statusErr *common.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			if ra := time.Duration(statusErr.RetryAfter) * time.Second; ra > wait {
				wait = ra
			}
		}
		c.log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Dur("backoff", wait).
			Msg("retrying judge API request")
		metrics.JudgeAPIRetries.Inc()

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w: %w", c.maxAttempts, common.ErrFatal, lastErr)
}

// FetchPage fetches and decodes one page of submission records.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) ([]Record, error) {
	u := c.PageURL(req)
	body, err := c.FetchWithRetry(ctx, u)
	if err != nil {
		return nil, err
	}
	records, err := DecodePage(body)
	if err != nil {
		return nil, fmt.Errorf("decode page %s: %v: %w", u, err, common.ErrFatal)
	}
	return records, nil
}
