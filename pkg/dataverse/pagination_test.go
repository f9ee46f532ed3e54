package dataverse_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// scriptedRequester replays a fixed sequence of responses keyed by URL,
// recording every request it sees.
type scriptedRequester struct {
	responses map[string][]*dataverse.PageResponse
	served    map[string]int
	requests  []scriptedRequest
}

type scriptedRequest struct {
	url     string
	headers map[string]string
}

func newScriptedRequester() *scriptedRequester {
	return &scriptedRequester{
		responses: make(map[string][]*dataverse.PageResponse),
		served:    make(map[string]int),
	}
}

func (s *scriptedRequester) add(url string, resp *dataverse.PageResponse) {
	s.responses[url] = append(s.responses[url], resp)
}

func (s *scriptedRequester) Get(ctx context.Context, rawURL string, headers map[string]string) (*dataverse.PageResponse, error) {
	s.requests = append(s.requests, scriptedRequest{url: rawURL, headers: headers})

	queue := s.responses[rawURL]
	idx := s.served[rawURL]

	if idx >= len(queue) {
		return nil, fmt.Errorf("unexpected request for %s", rawURL)
	}

	s.served[rawURL]++

	return queue[idx], nil
}

func pageBody(t *testing.T, nextLink string, records ...string) []byte {
	t.Helper()

	raw := make([]json.RawMessage, 0, len(records))
	for _, name := range records {
		raw = append(raw, json.RawMessage(fmt.Sprintf(`{"name":%q}`, name)))
	}

	body, err := json.Marshal(dataverse.CollectionResponse{Value: raw, NextLink: nextLink})
	require.NoError(t, err)

	return body
}

func okPage(t *testing.T, nextLink string, records ...string) *dataverse.PageResponse {
	t.Helper()

	return &dataverse.PageResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       pageBody(t, nextLink, records...),
	}
}

func statusPage(status int, retryAfter string) *dataverse.PageResponse {
	header := http.Header{}
	if retryAfter != "" {
		header.Set("Retry-After", retryAfter)
	}

	return &dataverse.PageResponse{
		StatusCode: status,
		Header:     header,
		Body:       []byte(`{"error":{"code":"0x80072322","message":"busy"}}`),
	}
}

func recordNames(t *testing.T, result *dataverse.FetchResult) []string {
	t.Helper()

	records, err := dataverse.UnmarshalRecords(result.Records)
	require.NoError(t, err)

	names := make([]string, 0, len(records))
	for _, record := range records {
		name, _ := record["name"].(string)
		names = append(names, name)
	}

	return names
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

const testBase = "https://org.example.crm.dynamics.com/api/data/v9.2"

func TestFetchAll_Completeness(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", okPage(t, testBase+"/accounts?page=2", "a", "b"))
	requester.add(testBase+"/accounts?page=2", okPage(t, testBase+"/accounts?page=3", "c", "d"))
	requester.add(testBase+"/accounts?page=3", okPage(t, "", "e"))

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	result, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		PageSize:   2,
		MaxRetries: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, recordNames(t, result))
}

func TestFetchAll_PageSizePreferenceOnEveryRequest(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/contacts", okPage(t, testBase+"/contacts?page=2", "a"))
	requester.add(testBase+"/contacts?page=2", okPage(t, "", "b"))

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	_, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:     testBase,
		Collection:  "contacts",
		PageSize:    42,
		AccessToken: "tok-123",
	})
	require.NoError(t, err)
	require.Len(t, requester.requests, 2)

	for _, request := range requester.requests {
		assert.Equal(t, "odata.maxpagesize=42", request.headers["Prefer"])
		assert.Equal(t, "Bearer tok-123", request.headers["Authorization"])
	}
}

func TestFetchAll_RetryThenSuccessNoDuplication(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", okPage(t, testBase+"/accounts?page=2", "a", "b"))
	requester.add(testBase+"/accounts?page=2", statusPage(http.StatusServiceUnavailable, ""))
	requester.add(testBase+"/accounts?page=2", statusPage(http.StatusServiceUnavailable, ""))
	requester.add(testBase+"/accounts?page=2", okPage(t, "", "c"))

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	result, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, recordNames(t, result))
	assert.Equal(t, 2, result.Pages)
}

func TestFetchAll_RetryBudgetEnforced(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", okPage(t, testBase+"/accounts?page=2", "a"))

	// maxRetries+1 transient failures on page 2.
	for range 3 {
		requester.add(testBase+"/accounts?page=2", statusPage(http.StatusBadGateway, ""))
	}

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	result, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 2,
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, dataverse.IsRetryExhausted(err))

	exhausted := &dataverse.RetryExhaustedError{}
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, http.StatusBadGateway, exhausted.LastStatus)
}

func TestFetchAll_ZeroRetriesFailsImmediately(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", statusPage(http.StatusTooManyRequests, ""))

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	_, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 0,
	})
	require.Error(t, err)
	assert.True(t, dataverse.IsRetryExhausted(err))
	assert.Len(t, requester.requests, 1)
}

func TestFetchAll_FatalShortCircuit(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", &dataverse.PageResponse{
		StatusCode: http.StatusForbidden,
		Header:     http.Header{},
		Body:       []byte(`{"error":{"code":"0x80040220","message":"no privileges"}}`),
	})

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	_, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 5,
	})
	require.Error(t, err)
	assert.Len(t, requester.requests, 1)

	reqErr := &dataverse.RequestFailedError{}
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode)
	assert.Contains(t, reqErr.Error(), "no privileges")
	assert.True(t, dataverse.IsForbidden(err))
}

func TestFetchAll_PerPageCounterResets(t *testing.T) {
	requester := newScriptedRequester()

	// Page 1 needs 2 retries, page 2 then uses the full budget again.
	requester.add(testBase+"/accounts", statusPage(http.StatusInternalServerError, ""))
	requester.add(testBase+"/accounts", statusPage(http.StatusInternalServerError, ""))
	requester.add(testBase+"/accounts", okPage(t, testBase+"/accounts?page=2", "a"))
	requester.add(testBase+"/accounts?page=2", statusPage(http.StatusInternalServerError, ""))
	requester.add(testBase+"/accounts?page=2", statusPage(http.StatusInternalServerError, ""))
	requester.add(testBase+"/accounts?page=2", okPage(t, "", "b"))

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	result, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, recordNames(t, result))
}

func TestFetchAll_EmptyCollection(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", okPage(t, ""))

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	result, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, 1, result.Pages)
}

func TestFetchAll_RetryAfterHonored(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", okPage(t, testBase+"/accounts?page=2", "a", "b"))
	requester.add(testBase+"/accounts?page=2", statusPage(http.StatusTooManyRequests, "1"))
	requester.add(testBase+"/accounts?page=2", statusPage(http.StatusTooManyRequests, "1"))
	requester.add(testBase+"/accounts?page=2", okPage(t, "", "c", "d"))

	var waits []time.Duration

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(
		func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)

			return nil
		}))

	result, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, recordNames(t, result))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, waits)
}

func TestFetchAll_DefaultBackoffPerStatusClass(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", statusPage(http.StatusTooManyRequests, ""))
	requester.add(testBase+"/accounts", statusPage(http.StatusInternalServerError, ""))
	requester.add(testBase+"/accounts", okPage(t, "", "a"))

	var waits []time.Duration

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(
		func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)

			return nil
		}))

	_, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Second, 5 * time.Second}, waits)
}

func TestFetchAll_MalformedBodyIsFatal(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", &dataverse.PageResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       []byte("not json"),
	})

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(noSleep))

	_, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 3,
	})
	require.Error(t, err)

	reqErr := &dataverse.RequestFailedError{}
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Error(), "malformed page body")
	assert.Len(t, requester.requests, 1)
}

func TestFetchAll_ConfigurationErrors(t *testing.T) {
	fetcher := dataverse.NewFetcher(newScriptedRequester(), dataverse.WithSleepFunc(noSleep))

	tests := []struct {
		name    string
		request dataverse.FetchRequest
	}{
		{
			name:    "empty collection",
			request: dataverse.FetchRequest{BaseURL: testBase},
		},
		{
			name:    "malformed base URL",
			request: dataverse.FetchRequest{BaseURL: "not a url", Collection: "accounts"},
		},
		{
			name:    "page size too large",
			request: dataverse.FetchRequest{BaseURL: testBase, Collection: "accounts", PageSize: 5001},
		},
		{
			name:    "negative page size",
			request: dataverse.FetchRequest{BaseURL: testBase, Collection: "accounts", PageSize: -1},
		},
		{
			name:    "negative retry budget",
			request: dataverse.FetchRequest{BaseURL: testBase, Collection: "accounts", MaxRetries: -1},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := fetcher.FetchAll(context.Background(), testCase.request)
			require.ErrorIs(t, err, dataverse.ErrInvalidFetchRequest)
		})
	}
}

func TestFetchAll_CancellationDuringBackoff(t *testing.T) {
	requester := newScriptedRequester()
	requester.add(testBase+"/accounts", statusPage(http.StatusInternalServerError, ""))

	ctx, cancel := context.WithCancel(context.Background())

	fetcher := dataverse.NewFetcher(requester, dataverse.WithSleepFunc(
		func(ctx context.Context, d time.Duration) error {
			cancel()

			return ctx.Err()
		}))

	_, err := fetcher.FetchAll(ctx, dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 3,
	})
	require.Error(t, err)
	assert.True(t, dataverse.IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAll_CancellationBeforeNextPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := dataverse.NewFetcher(newScriptedRequester(), dataverse.WithSleepFunc(noSleep))

	_, err := fetcher.FetchAll(ctx, dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
	})
	require.Error(t, err)
	assert.True(t, dataverse.IsCancelled(err))
}

func TestFetchAll_TransportErrorIsFatal(t *testing.T) {
	// No scripted response registered: the requester returns an error.
	fetcher := dataverse.NewFetcher(newScriptedRequester(), dataverse.WithSleepFunc(noSleep))

	_, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    testBase,
		Collection: "accounts",
		MaxRetries: 3,
	})
	require.Error(t, err)

	reqErr := &dataverse.RequestFailedError{}
	require.ErrorAs(t, err, &reqErr)
}

// httpRequester is a minimal live PageRequester for the end-to-end test.
type httpRequester struct {
	client *http.Client
}

func (h *httpRequester) Get(ctx context.Context, rawURL string, headers map[string]string) (*dataverse.PageResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &dataverse.PageResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func TestFetchAll_EndToEndOverHTTP(t *testing.T) {
	var hits429 int

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	defer server.Close()

	mux.HandleFunc("/api/data/v9.2/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "odata.maxpagesize=2", r.Header.Get("Prefer"))

		next := server.URL + "/api/data/v9.2/accounts2"
		_, _ = fmt.Fprintf(w, `{"value":[{"name":"a"},{"name":"b"}],"@odata.nextLink":%q}`, next)
	})
	mux.HandleFunc("/api/data/v9.2/accounts2", func(w http.ResponseWriter, r *http.Request) {
		hits429++
		if hits429 < 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = fmt.Fprint(w, `{"value":[{"name":"c"}]}`)
	})

	fetcher := dataverse.NewFetcher(&httpRequester{client: server.Client()})

	result, err := fetcher.FetchAll(context.Background(), dataverse.FetchRequest{
		BaseURL:    server.URL + "/api/data/v9.2",
		Collection: "accounts",
		PageSize:   2,
		MaxRetries: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, []string{"a", "b", "c"}, recordNames(t, result))
	assert.Equal(t, 2, hits429)
}
