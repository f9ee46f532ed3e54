package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/internal/http"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// RecordsClient implements dataverse.RecordsClient.
type RecordsClient struct {
	httpClient *http.Client
	fetcher    *dataverse.Fetcher
	baseURL    string
}

// NewRecordsClient creates a records client. The base URL is the full
// Web API base used by bulk fetches.
func NewRecordsClient(httpClient *http.Client, baseURL string) *RecordsClient {
	return &RecordsClient{
		httpClient: httpClient,
		fetcher:    dataverse.NewFetcher(&pageRequester{httpClient: httpClient}),
		baseURL:    baseURL,
	}
}

// pageRequester adapts the HTTP layer's single-attempt GET to the
// fetcher's transport interface. The fetcher owns retry policy, so the
// retrying client must not be used here.
type pageRequester struct {
	httpClient *http.Client
}

func (r *pageRequester) Get(ctx context.Context, rawURL string, headers map[string]string) (*dataverse.PageResponse, error) {
	return r.httpClient.RawGet(ctx, rawURL, headers)
}

// Create implements dataverse.RecordsClient.Create.
func (c *RecordsClient) Create(ctx context.Context, collection string, record dataverse.Record) (dataverse.Record, error) {
	if collection == "" {
		return nil, dataverse.ErrEntityNameRequired
	}

	resp, err := c.httpClient.Post(ctx, "/"+collection, record)
	if err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}

	return decodeRecord(resp.Body)
}

// Get implements dataverse.RecordsClient.Get.
func (c *RecordsClient) Get(ctx context.Context, collection, id string, params *dataverse.QueryParams) (dataverse.Record, error) {
	err := validateRecordID(id)
	if err != nil {
		return nil, err
	}

	var query url.Values
	if params != nil {
		query = params.ToValues()
	}

	resp, err := c.httpClient.Get(ctx, recordPath(collection, id), query)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}

	return decodeRecord(resp.Body)
}

// Update implements dataverse.RecordsClient.Update.
func (c *RecordsClient) Update(ctx context.Context, collection, id string, record dataverse.Record) (dataverse.Record, error) {
	err := validateRecordID(id)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Patch(ctx, recordPath(collection, id), record)
	if err != nil {
		return nil, fmt.Errorf("updating record: %w", err)
	}

	return decodeRecord(resp.Body)
}

// Delete implements dataverse.RecordsClient.Delete.
func (c *RecordsClient) Delete(ctx context.Context, collection, id string) error {
	err := validateRecordID(id)
	if err != nil {
		return err
	}

	_, err = c.httpClient.Delete(ctx, recordPath(collection, id))
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	return nil
}

// List implements dataverse.RecordsClient.List: a single page, no
// continuation following.
func (c *RecordsClient) List(ctx context.Context, collection string, params *dataverse.QueryParams) (*dataverse.CollectionResponse, error) {
	if collection == "" {
		return nil, dataverse.ErrEntityNameRequired
	}

	var query url.Values
	if params != nil {
		query = params.ToValues()
	}

	resp, err := c.httpClient.Get(ctx, "/"+collection, query)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	var page dataverse.CollectionResponse

	err = json.Unmarshal(resp.Body, &page)
	if err != nil {
		return nil, fmt.Errorf("parsing collection response: %w", err)
	}

	return &page, nil
}

// ListAll implements dataverse.RecordsClient.ListAll. A nil options
// value, or a zero field within it, selects the defaults.
func (c *RecordsClient) ListAll(ctx context.Context, collection string, params *dataverse.QueryParams, opts *dataverse.FetchOptions) (*dataverse.FetchResult, error) {
	pageSize := 0
	maxRetries := constants.DefaultFetchRetries

	if opts != nil {
		pageSize = opts.PageSize

		if opts.MaxRetries > 0 {
			maxRetries = opts.MaxRetries
		}
	}

	return c.fetcher.FetchAll(ctx, dataverse.FetchRequest{
		BaseURL:    c.baseURL,
		Collection: collection,
		PageSize:   pageSize,
		MaxRetries: maxRetries,
		Query:      params,
	})
}

func recordPath(collection, id string) string {
	return fmt.Sprintf("/%s(%s)", collection, id)
}

func validateRecordID(id string) error {
	_, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", dataverse.ErrInvalidRecordID, id)
	}

	return nil
}

func decodeRecord(body []byte) (dataverse.Record, error) {
	if len(body) == 0 {
		return dataverse.Record{}, nil
	}

	var record dataverse.Record

	err := json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("parsing record response: %w", err)
	}

	return record, nil
}
