package headless

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

// DefaultUserAgent identifies the headless shell to the content server.
const DefaultUserAgent = "webhost-headless/1.0"

// MaxDocumentSize bounds the fetched document body.
const MaxDocumentSize = 10 * 1024 * 1024

// ErrDocumentTooLarge is returned when the body exceeds the fetcher's limit.
// The server answered, so the failure is not provisional.
var ErrDocumentTooLarge = errors.New("document exceeds size limit")

// Page is a fetched response.
type Page struct {
	URL         *url.URL
	Status      int
	ContentType string
	Body        []byte
}

// Fetcher retrieves documents. It never retries on its own; retries belong
// to the navigation controller.
type Fetcher struct {
	client  *resty.Client
	metrics *monitoring.Metrics
}

// NewFetcher creates a fetcher on a pooled transport.
func NewFetcher(userAgent string, metrics *monitoring.Metrics) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	// Only the pooled transport is used. Retry policy belongs to
	// navigation.Controller, so both clients run with retries off.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	client := resty.New().
		SetRetryCount(0).
		SetResponseBodyLimit(MaxDocumentSize).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	client.SetTransport(retryClient.HTTPClient.Transport)

	return &Fetcher{client: client, metrics: metrics}
}

// SetBodyLimit replaces MaxDocumentSize as the body limit.
func (f *Fetcher) SetBodyLimit(n int) *Fetcher {
	f.client.SetResponseBodyLimit(n)
	return f
}

// Fetch issues a GET for u bounded by timeout. Transport failures are
// returned unwrapped enough for navigation.ClassifyError.
func (f *Fetcher) Fetch(ctx context.Context, u *url.URL, timeout time.Duration) (*Page, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(u.String())
	f.metrics.ObserveFetch(time.Since(start))
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), ErrDocumentTooLarge)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Redacted(), err)
	}

	body := resp.Body()

	final := u
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL
	}

	return &Page{
		URL:         final,
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        body,
	}, nil
}
