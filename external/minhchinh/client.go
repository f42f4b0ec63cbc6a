package minhchinh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/kqsx/internal/domain/lottery"
	"github.com/riskibarqy/kqsx/internal/domain/rawdata"
	"github.com/riskibarqy/kqsx/internal/domain/source"
	"github.com/riskibarqy/kqsx/internal/platform/cache"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
	"github.com/riskibarqy/kqsx/internal/platform/resilience"
)

const (
	SourceName       = "minhchinh"
	defaultBaseURL   = "https://www.minhchinh.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/127.0.0.1 Safari/537.36"
	maxPageBytes = 4 << 20
	pageCacheTTL = 2 * time.Minute
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches the daily results page, which holds all three regions, and
// parses the requested region out of it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	retry      resilience.RetryPolicy
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     singleflight.Group
	pages      *cache.Store
}

var _ source.Fetcher = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	retry := resilience.DefaultRetryPolicy()
	retry.MaxRetries = max(cfg.MaxRetries, 0)
	if cfg.RetryDelay > 0 {
		retry.BaseDelay = cfg.RetryDelay
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		retry:      retry,
		logger:     logger.With("source", SourceName),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
		pages:      cache.NewStore(pageCacheTTL, 8),
	}
}

// PageURL is the results page for a date, e.g. /ket-qua-xo-so/01-10-2024.html.
func (c *Client) PageURL(date time.Time) string {
	return fmt.Sprintf("%s/ket-qua-xo-so/%s.html", c.baseURL, date.Format("02-01-2006"))
}

func (c *Client) Fetch(ctx context.Context, region lottery.RegionCode, date time.Time) source.FetchResult {
	if !region.Valid() {
		return source.Fatal(crerr.Newf("unknown region %q", region), 0)
	}

	pageURL := c.PageURL(date)
	body, attempts, err := c.page(ctx, pageURL)
	switch {
	case err == nil:
	case crerr.Is(err, lottery.ErrNotAvailable):
		return source.NotAvailable(err, attempts)
	case crerr.Is(err, lottery.ErrFetch):
		return source.Retryable(err, attempts)
	default:
		return source.Fatal(err, attempts)
	}

	ref := rawdata.Ref(SourceName, body)
	boards, err := ParseRegion(body, region)
	if err != nil {
		if crerr.Is(err, lottery.ErrNotAvailable) {
			return source.NotAvailable(err, attempts)
		}
		if pe, ok := err.(*lottery.ParseError); ok {
			err = pe.WithRef(ref)
		}
		c.logger.WarnContext(ctx, "results page could not be parsed",
			"region", region, "date", lottery.FormatDate(date), "payload_ref", ref, "error", err)
		return source.Fatal(err, attempts).WithRejected(&source.RawPayload{
			Kind:      source.KindStructured,
			Source:    SourceName,
			Region:    region,
			Date:      lottery.DateOf(date),
			SourceURL: pageURL,
			Ref:       ref,
			Body:      body,
		})
	}

	return source.Found(&source.RawPayload{
		Kind:      source.KindStructured,
		Source:    SourceName,
		Region:    region,
		Date:      lottery.DateOf(date),
		SourceURL: pageURL,
		Boards:    boards,
		Ref:       ref,
		Body:      body,
	}, attempts)
}

// Page returns the raw results page for date, for strategies that read the
// page themselves.
func (c *Client) Page(ctx context.Context, date time.Time) ([]byte, string, error) {
	pageURL := c.PageURL(date)
	body, _, err := c.page(ctx, pageURL)
	return body, pageURL, err
}

type pageResult struct {
	body     []byte
	attempts int
}

// page downloads a results page once per date; region fetches of the same
// date share the in-flight request and the short-lived page cache.
func (c *Client) page(ctx context.Context, pageURL string) ([]byte, int, error) {
	if body, ok, _ := c.pages.Get(ctx, pageURL); ok {
		return body, 0, nil
	}
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "circuit breaker rejected request", "state", c.breaker.State())
		return nil, 0, crerr.Wrap(lottery.ErrFetch, "results source is temporarily unavailable")
	}

	out, err, _ := c.flight.Do(pageURL, func() (any, error) {
		var body []byte
		attempts, reqErr := resilience.Retry(ctx, c.retry, isTransient, func(ctx context.Context, _ int) error {
			raw, err := c.executeRequest(ctx, pageURL)
			if err != nil {
				return err
			}
			body = raw
			return nil
		})
		c.breaker.Record(reqErr, isTransient)
		if reqErr != nil {
			return pageResult{attempts: attempts}, reqErr
		}
		_ = c.pages.Set(ctx, pageURL, body)
		return pageResult{body: body, attempts: attempts}, nil
	})
	res, _ := out.(pageResult)
	if err != nil {
		if ctx.Err() == nil && isTransient(err) {
			c.logger.WarnContext(ctx, "results page request failed", "url", pageURL, "attempts", res.attempts, "error", err)
		}
		return nil, res.attempts, err
	}
	return res.body, res.attempts, nil
}

func (c *Client) executeRequest(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crerr.Wrapf(lottery.ErrFetch, "send request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, crerr.Wrapf(lottery.ErrFetch, "read response body: %v", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, crerr.Wrapf(lottery.ErrNotAvailable, "results page %s not found", pageURL)
	case isRetryableStatus(resp.StatusCode):
		return nil, crerr.Wrapf(lottery.ErrFetch, "source status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	default:
		return nil, crerr.Newf("source status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}
}

func isTransient(err error) bool {
	return crerr.Is(err, lottery.ErrFetch)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	text := strings.Join(strings.Fields(string(raw)), " ")
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
