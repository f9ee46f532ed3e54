package dvclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/davwright/XB-DataverseTools/internal/client"
	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// New creates a Dataverse Web API client. The organization URL is
// normalized and, when a credential grant is configured without an
// explicit token URL, the Azure AD endpoint is derived from TenantID.
func New(ctx context.Context, config *dataverse.Config) (dataverse.Client, error) {
	if config == nil {
		return nil, dataverse.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, dataverse.ErrAPIEndpointRequired
	}

	config.APIEndpoint = normalizeEndpoint(config.APIEndpoint)

	if needsAuth(config) && config.TokenURL == "" {
		if config.TenantID == "" {
			return nil, dataverse.ErrTenantIDRequired
		}

		config.TokenURL = fmt.Sprintf(constants.TokenEndpointFormat, config.TenantID)
	}

	dvClient, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return dvClient, nil
}

// needsAuth checks if the config requires a credential grant.
func needsAuth(config *dataverse.Config) bool {
	return config.ClientID != "" && config.ClientSecret != ""
}

// normalizeEndpoint trims a trailing slash and defaults to https.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithToken creates a client with an organization URL and a
// pre-issued access token.
func NewWithToken(ctx context.Context, endpoint, token string) (dataverse.Client, error) {
	return New(ctx, &dataverse.Config{
		APIEndpoint: endpoint,
		AccessToken: token,
	})
}

// NewWithClientCredentials creates a client using the OAuth2
// client-credentials grant against the tenant's Azure AD endpoint.
func NewWithClientCredentials(ctx context.Context, endpoint, tenantID, clientID, clientSecret string) (dataverse.Client, error) {
	return New(ctx, &dataverse.Config{
		APIEndpoint:  endpoint,
		TenantID:     tenantID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}
