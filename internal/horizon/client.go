package horizon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mtlprog/divtracker/internal/domain"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultPageSize       = 200
	defaultMaxPages       = 50
)

// Endpoint labels reported to the RequestObserver.
const (
	EndpointAccounts   = "accounts"
	EndpointOperations = "operations"
	EndpointAssets     = "assets"
)

// Request outcomes reported to the RequestObserver.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeRateLimited = "rate_limited"
	OutcomeTimeout     = "timeout"
	OutcomeServerError = "server_error"
	OutcomeError       = "error"
)

// RequestObserver receives one call per HTTP attempt.
type RequestObserver interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

// Options configures a Client. Zero values fall back to defaults, except
// MaxRetries where 0 means a single attempt.
//
// 429 retries apply per request, so a history traversal under sustained rate
// limiting can wait up to MaxPages × RetryBaseDelay × (2^MaxRetries - 1) in
// backoff alone (50 × 2s × 7 = 700s with the service defaults). Set
// MaxRetries to 0 to surface 429 immediately as ErrTransientNetwork.
type Options struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
	PageSize       int
	MaxPages       int
	// RateLimit is requests per second across all callers; <= 0 disables limiting.
	RateLimit float64
	Burst     int
	Observer  RequestObserver
}

// Client is an HTTP client for the Stellar Horizon API.
//
// Every attempt runs under its own RequestTimeout. HTTP 429 is retried with
// exponential backoff up to MaxRetries; timeouts and connection failures are
// surfaced immediately so callers decide on retries.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	observer       RequestObserver
	maxRetries     int
	baseDelay      time.Duration
	requestTimeout time.Duration
	pageSize       int
	maxPages       int
}

// NewClient creates a new Horizon API client.
func NewClient(baseURL string, opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := max(opts.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{},
		limiter:        limiter,
		observer:       opts.Observer,
		maxRetries:     opts.MaxRetries,
		baseDelay:      opts.RetryBaseDelay,
		requestTimeout: opts.RequestTimeout,
		pageSize:       opts.PageSize,
		maxPages:       opts.MaxPages,
	}
}

// PageSize returns the number of records requested per history page.
func (c *Client) PageSize() int { return c.pageSize }

// MaxPages returns the history traversal ceiling.
func (c *Client) MaxPages() int { return c.maxPages }

// get performs a GET request with retry on 429.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	url := c.baseURL + path

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: waiting for rate limiter: %v", domain.ErrQueryTimedOut, err)
		}

		start := time.Now()
		status, body, err := c.do(ctx, url)
		if err != nil {
			c.observe(endpoint, outcomeForError(err), start)
			return nil, err
		}

		switch {
		case status == http.StatusOK:
			c.observe(endpoint, OutcomeOK, start)
			return body, nil
		case status == http.StatusNotFound:
			c.observe(endpoint, OutcomeNotFound, start)
			return nil, fmt.Errorf("%w: HTTP 404 from %s", domain.ErrWalletNotFound, url)
		case status == http.StatusTooManyRequests:
			c.observe(endpoint, OutcomeRateLimited, start)
			lastErr = fmt.Errorf("%w: HTTP 429 at %s (attempt %d/%d)", domain.ErrTransientNetwork, url, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		case status >= http.StatusInternalServerError:
			c.observe(endpoint, OutcomeServerError, start)
			return nil, fmt.Errorf("%w: HTTP %d from %s: %s", domain.ErrTransientNetwork, status, url, string(body))
		default:
			c.observe(endpoint, OutcomeError, start)
			return nil, fmt.Errorf("HTTP %d from %s: %s", status, url, string(body))
		}
	}

	return nil, lastErr
}

// do executes a single attempt under the per-request timeout.
func (c *Client) do(ctx context.Context, url string) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransportError(ctx, reqCtx, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, classifyTransportError(ctx, reqCtx, url, err)
	}
	return resp.StatusCode, body, nil
}

// classifyTransportError separates caller cancellation from the per-request
// deadline and from plain connection failures.
func classifyTransportError(parent, reqCtx context.Context, url string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: GET %s", domain.ErrQueryTimedOut, url)
	}
	return fmt.Errorf("%w: GET %s: %v", domain.ErrTransientNetwork, url, err)
}

func outcomeForError(err error) string {
	if errors.Is(err, domain.ErrQueryTimedOut) {
		return OutcomeTimeout
	}
	return OutcomeError
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(endpoint, outcome, time.Since(start))
}

// getJSON performs a GET request and unmarshals the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, dest any) error {
	body, err := c.get(ctx, endpoint, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", path, err)
	}
	return nil
}
