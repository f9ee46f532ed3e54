package client

import (
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// apiBase is the path prefix httptest servers see for Web API calls made
// through a test client.
const apiBase = "/api/data/v9.2"

// NewTestClient creates an unauthenticated client against the given base
// URL, typically an httptest server.
func NewTestClient(baseURL string) *Client {
	client, err := NewWithTokenManager(&dataverse.Config{APIEndpoint: baseURL}, nil)
	if err != nil {
		panic(err)
	}

	return client
}
