package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/davwright/XB-DataverseTools/internal/http"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// MetadataClient implements dataverse.MetadataClient.
type MetadataClient struct {
	httpClient *http.Client
}

// NewMetadataClient creates a metadata client.
func NewMetadataClient(httpClient *http.Client) *MetadataClient {
	return &MetadataClient{httpClient: httpClient}
}

// WhoAmI implements dataverse.MetadataClient.WhoAmI.
func (c *MetadataClient) WhoAmI(ctx context.Context) (*dataverse.WhoAmIResponse, error) {
	resp, err := c.httpClient.Get(ctx, "/WhoAmI", nil)
	if err != nil {
		return nil, fmt.Errorf("calling WhoAmI: %w", err)
	}

	var whoAmI dataverse.WhoAmIResponse

	err = json.Unmarshal(resp.Body, &whoAmI)
	if err != nil {
		return nil, fmt.Errorf("parsing WhoAmI response: %w", err)
	}

	return &whoAmI, nil
}

// Entity implements dataverse.MetadataClient.Entity: entity metadata
// with its attributes expanded.
func (c *MetadataClient) Entity(ctx context.Context, logicalName string) (*dataverse.EntityMetadata, error) {
	if logicalName == "" {
		return nil, dataverse.ErrEntityNameRequired
	}

	query := dataverse.NewQueryParams().WithExpand("Attributes").ToValues()

	resp, err := c.httpClient.Get(ctx, entityDefinitionPath(logicalName), query)
	if err != nil {
		return nil, fmt.Errorf("getting entity metadata: %w", err)
	}

	var entity dataverse.EntityMetadata

	err = json.Unmarshal(resp.Body, &entity)
	if err != nil {
		return nil, fmt.Errorf("parsing entity metadata: %w", err)
	}

	return &entity, nil
}

// Entities implements dataverse.MetadataClient.Entities.
func (c *MetadataClient) Entities(ctx context.Context, params *dataverse.QueryParams) ([]dataverse.EntityMetadata, error) {
	return listEntityDefinitions(ctx, c.httpClient, params)
}
