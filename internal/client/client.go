// Package client implements the dataverse.Client interface against the
// Dataverse Web API.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/davwright/XB-DataverseTools/internal/auth"
	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/internal/http"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// Client implements the dataverse.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string

	records    dataverse.RecordsClient
	tables     dataverse.TablesClient
	columns    dataverse.ColumnsClient
	optionSets dataverse.OptionSetsClient
	metadata   dataverse.MetadataClient
}

// New creates a Dataverse Web API client from the given configuration.
// The HTTP layer talks to "<endpoint>/api/data/<version>".
func New(ctx context.Context, config *dataverse.Config) (*Client, error) {
	if config == nil {
		return nil, dataverse.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, dataverse.ErrAPIEndpointRequired
	}

	tokenManager, err := createTokenManager(config)
	if err != nil {
		return nil, err
	}

	return NewWithTokenManager(config, tokenManager)
}

// NewWithTokenManager creates a client with a caller-supplied token
// manager, bypassing the credential precedence in the configuration.
func NewWithTokenManager(config *dataverse.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config.APIEndpoint == "" {
		return nil, dataverse.ErrAPIEndpointRequired
	}

	baseURL := apiBaseURL(config)
	httpClient := http.NewClient(baseURL, tokenManager, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      baseURL,
	}

	client.initializeResourceClients()

	return client, nil
}

// apiBaseURL builds the Web API base from the organization endpoint and
// version.
func apiBaseURL(config *dataverse.Config) string {
	version := config.APIVersion
	if version == "" {
		version = constants.DefaultAPIVersion
	}

	return strings.TrimSuffix(config.APIEndpoint, "/") + constants.APIPathPrefix + version
}

// createTokenManager picks a token manager per the credential precedence
// documented on dataverse.Config.
func createTokenManager(config *dataverse.Config) (auth.TokenManager, error) {
	hasGrant := config.ClientID != "" && config.ClientSecret != ""

	if hasGrant && config.TenantID == "" && config.TokenURL == "" {
		return nil, dataverse.ErrTenantIDRequired
	}

	if config.AccessToken != "" && hasGrant {
		return auth.NewFallbackTokenManager(
			auth.NewStaticTokenManager(config.AccessToken),
			createGrantTokenManager(config),
		), nil
	}

	if config.AccessToken != "" {
		return auth.NewStaticTokenManager(config.AccessToken), nil
	}

	if hasGrant {
		return createGrantTokenManager(config), nil
	}

	return nil, nil // No authentication
}

func createGrantTokenManager(config *dataverse.Config) auth.TokenManager {
	if config.TokenURL != "" {
		return auth.NewClientCredentialsTokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       []string{strings.TrimSuffix(config.APIEndpoint, "/") + "/.default"},
		})
	}

	return auth.NewDataverseTokenManager(config.TenantID, config.ClientID, config.ClientSecret, config.APIEndpoint)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *dataverse.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithHTTPTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

func (c *Client) initializeResourceClients() {
	c.records = NewRecordsClient(c.httpClient, c.baseURL)
	c.tables = NewTablesClient(c.httpClient)
	c.columns = NewColumnsClient(c.httpClient)
	c.optionSets = NewOptionSetsClient(c.httpClient)
	c.metadata = NewMetadataClient(c.httpClient)
}

// Records implements dataverse.Client.Records.
func (c *Client) Records() dataverse.RecordsClient {
	return c.records
}

// Tables implements dataverse.Client.Tables.
func (c *Client) Tables() dataverse.TablesClient {
	return c.tables
}

// Columns implements dataverse.Client.Columns.
func (c *Client) Columns() dataverse.ColumnsClient {
	return c.columns
}

// OptionSets implements dataverse.Client.OptionSets.
func (c *Client) OptionSets() dataverse.OptionSetsClient {
	return c.optionSets
}

// Metadata implements dataverse.Client.Metadata.
func (c *Client) Metadata() dataverse.MetadataClient {
	return c.metadata
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// GetToken returns the current access token from the token manager.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", dataverse.ErrNoTokenManagerConfigured
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("getting token: %w", err)
	}

	return token, nil
}

// SetToken installs a pre-issued token on the client's token manager.
// A client built without credentials has no manager and ignores the call.
func (c *Client) SetToken(token string, expiresAt time.Time) {
	if c.tokenManager == nil {
		return
	}

	c.tokenManager.SetToken(token, expiresAt)
}
