package dataverse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Page-size bounds documented for the Web API's odata.maxpagesize
// preference.
const (
	MinPageSize = 1
	MaxPageSize = 5000

	// DefaultPageSize is applied when FetchRequest.PageSize is zero.
	DefaultPageSize = 500

	// Default backoff applied when a transient response carries no
	// Retry-After header.
	defaultRateLimitBackoff   = 10 * time.Second
	defaultServerErrorBackoff = 5 * time.Second
)

// PageResponse is one HTTP response as seen by the fetcher.
type PageResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// PageRequester issues a single authenticated GET against an absolute
// URL. Implementations must not retry; retry policy belongs to the
// fetcher. A non-nil error means the request never produced an HTTP
// response (transport failure) and is treated as fatal.
type PageRequester interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*PageResponse, error)
}

// FetchRequest describes one bulk retrieval of a collection endpoint.
// Immutable once the fetch begins.
type FetchRequest struct {
	// BaseURL is the Web API base, e.g.
	// "https://myorg.crm.dynamics.com/api/data/v9.2".
	BaseURL string
	// Collection is the entity set name, e.g. "accounts".
	Collection string
	// PageSize bounds each page via the odata.maxpagesize preference
	// (1..5000). Zero selects DefaultPageSize.
	PageSize int
	// MaxRetries is the per-page budget for transient failures. Zero
	// means fail immediately on the first transient error.
	MaxRetries int
	// AccessToken, when set, is attached as a Bearer authorization header
	// on every request, continuation requests included.
	AccessToken string
	// Query carries optional OData system query options for the initial
	// request. Continuation links already encode their own.
	Query *QueryParams
}

// FetchResult is the outcome of a successful FetchAll: every record from
// every page, in server order, plus the number of pages retrieved.
type FetchResult struct {
	Records []json.RawMessage
	Pages   int
}

// SleepFunc waits for the given duration or until the context is done,
// returning the context error in the latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher retrieves the complete contents of a collection endpoint,
// following @odata.nextLink continuation and retrying transient failures
// per page. A Fetcher holds no state across calls; concurrent FetchAll
// calls are safe.
type Fetcher struct {
	requester PageRequester
	sleep     SleepFunc
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithSleepFunc replaces the backoff sleep. Intended for tests that must
// not wait on the wall clock.
func WithSleepFunc(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a Fetcher using the given transport.
func NewFetcher(requester PageRequester, opts ...FetcherOption) *Fetcher {
	fetcher := &Fetcher{
		requester: requester,
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		opt(fetcher)
	}

	return fetcher
}

// FetchOptions tunes a RecordsClient.ListAll call.
type FetchOptions struct {
	PageSize   int
	MaxRetries int
}

// FetchAll retrieves every page of the requested collection.
//
// Pages are fetched strictly sequentially: each continuation link is only
// known once the prior page is decoded. On success the result holds the
// concatenation of all pages' records in server order. On failure nothing
// is returned; accumulated pages are discarded because the caller could
// not safely resume mid-stream without the continuation link.
func (f *Fetcher) FetchAll(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	nextURL, err := req.initialURL()
	if err != nil {
		return nil, err
	}

	headers := req.headers()
	result := &FetchResult{Records: []json.RawMessage{}}

	for nextURL != "" {
		page, err := f.fetchPage(ctx, nextURL, headers, req.MaxRetries)
		if err != nil {
			return nil, err
		}

		result.Records = append(result.Records, page.Value...)
		result.Pages++
		nextURL = page.NextLink
	}

	return result, nil
}

// fetchPage retrieves a single page, retrying transient failures up to
// maxRetries times. The attempt counter is local to this page.
func (f *Fetcher) fetchPage(ctx context.Context, pageURL string, headers map[string]string, maxRetries int) (*CollectionResponse, error) {
	var (
		attempt  int
		lastErr  error
		lastCode int
	)

	for {
		err := ctx.Err()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchCancelled, err)
		}

		resp, err := f.requester.Get(ctx, pageURL, headers)
		if err != nil {
			// Transport failure: no HTTP response to classify, fatal.
			return nil, &RequestFailedError{Err: err}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return decodePage(resp)
		}

		if !isTransient(resp.StatusCode) {
			respErr := ParseResponseError(resp.StatusCode, resp.Body)

			return nil, &RequestFailedError{
				StatusCode: resp.StatusCode,
				Detail:     errorDetail(respErr),
				Err:        respErr,
			}
		}

		lastCode = resp.StatusCode
		lastErr = ParseResponseError(resp.StatusCode, resp.Body)

		attempt++
		if attempt > maxRetries {
			return nil, &RetryExhaustedError{
				Attempts:   attempt,
				LastStatus: lastCode,
				Err:        lastErr,
			}
		}

		err = f.sleep(ctx, backoffFor(resp))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchCancelled, err)
		}
	}
}

// initialURL validates the request and builds the first page URL.
func (r FetchRequest) initialURL() (string, error) {
	if r.Collection == "" {
		return "", fmt.Errorf("%w: collection name is empty", ErrInvalidFetchRequest)
	}

	if r.PageSize != 0 && (r.PageSize < MinPageSize || r.PageSize > MaxPageSize) {
		return "", fmt.Errorf("%w: page size %d outside %d..%d",
			ErrInvalidFetchRequest, r.PageSize, MinPageSize, MaxPageSize)
	}

	if r.MaxRetries < 0 {
		return "", fmt.Errorf("%w: negative retry budget", ErrInvalidFetchRequest)
	}

	base, err := url.Parse(r.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: malformed base URL %q", ErrInvalidFetchRequest, r.BaseURL)
	}

	pageURL := base.JoinPath(r.Collection)
	if r.Query != nil {
		pageURL.RawQuery = r.Query.ToValues().Encode()
	}

	return pageURL.String(), nil
}

// headers builds the header set attached to every request of the fetch,
// continuation requests included.
func (r FetchRequest) headers() map[string]string {
	pageSize := r.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	headers := map[string]string{
		"Accept":           "application/json",
		"OData-MaxVersion": "4.0",
		"OData-Version":    "4.0",
		"Prefer":           fmt.Sprintf("odata.maxpagesize=%d", pageSize),
	}

	if r.AccessToken != "" {
		headers["Authorization"] = "Bearer " + r.AccessToken
	}

	return headers
}

func decodePage(resp *PageResponse) (*CollectionResponse, error) {
	var page CollectionResponse

	err := json.Unmarshal(resp.Body, &page)
	if err != nil {
		return nil, &RequestFailedError{
			StatusCode: resp.StatusCode,
			Detail:     "malformed page body",
			Err:        err,
		}
	}

	return &page, nil
}

// isTransient classifies a status as worth retrying: rate limiting and
// server errors only. Everything else is fatal.
func isTransient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// backoffFor picks the wait before re-issuing a transiently failed
// request: the server's Retry-After seconds when present, otherwise a
// fixed default per status class.
func backoffFor(resp *PageResponse) time.Duration {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		seconds, err := strconv.Atoi(retryAfter)
		if err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return defaultRateLimitBackoff
	}

	return defaultServerErrorBackoff
}

func errorDetail(respErr *ResponseError) string {
	if respErr.Err != nil {
		return respErr.Err.Message
	}

	return ""
}

// sleepContext is the default SleepFunc: a timer wait interruptible by
// context cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
