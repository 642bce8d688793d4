package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/kinforge/kinforgebackend/apperrors"
)

const fetchAttempts = 3

// HTTPClient is the default Client: a plain JSON fetch against a provider
// gateway, rate limited so a crawl cannot hammer the upstream, with a small
// bounded retry for transient failures.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates a client against baseURL, allowing at most
// perSecond fetches per second.
func NewHTTPClient(baseURL string, perSecond int) *HTTPClient {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// FetchPersonRecord fetches the raw payload for one record. All failures are
// wrapped in an apperrors.FetchError so the indexer can record them per node
// without aborting the job.
func (c *HTTPClient) FetchPersonRecord(ctx context.Context, source, externalID string) ([]byte, error) {
	fetchURL := fmt.Sprintf("%s/%s/persons/%s", c.baseURL, url.PathEscape(source), url.PathEscape(externalID))

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &apperrors.FetchError{Source: source, ExternalID: externalID, Err: err}
		}
		body, err := c.fetchOnce(ctx, fetchURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, &apperrors.FetchError{Source: source, ExternalID: externalID, Err: ctx.Err()}
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return nil, &apperrors.FetchError{Source: source, ExternalID: externalID, Err: lastErr}
}

func (c *HTTPClient) fetchOnce(ctx context.Context, fetchURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	return body, nil
}
