package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/internal/http"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// TablesClient implements dataverse.TablesClient against the
// EntityDefinitions metadata endpoint.
type TablesClient struct {
	httpClient *http.Client
}

// NewTablesClient creates a tables client.
func NewTablesClient(httpClient *http.Client) *TablesClient {
	return &TablesClient{httpClient: httpClient}
}

// Create implements dataverse.TablesClient.Create. The table is
// provisioned together with its primary name column.
func (c *TablesClient) Create(ctx context.Context, request *dataverse.TableCreateRequest) error {
	if request == nil || request.SchemaName == "" {
		return dataverse.ErrSchemaNameRequired
	}

	_, err := c.httpClient.Post(ctx, "/EntityDefinitions", buildEntityDefinition(request))
	if err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	return nil
}

// Get implements dataverse.TablesClient.Get.
func (c *TablesClient) Get(ctx context.Context, logicalName string, expandAttributes bool) (*dataverse.EntityMetadata, error) {
	if logicalName == "" {
		return nil, dataverse.ErrEntityNameRequired
	}

	var query url.Values

	if expandAttributes {
		query = url.Values{}
		query.Set("$expand", "Attributes")
	}

	resp, err := c.httpClient.Get(ctx, entityDefinitionPath(logicalName), query)
	if err != nil {
		return nil, fmt.Errorf("getting table: %w", err)
	}

	var entity dataverse.EntityMetadata

	err = json.Unmarshal(resp.Body, &entity)
	if err != nil {
		return nil, fmt.Errorf("parsing entity metadata: %w", err)
	}

	return &entity, nil
}

// List implements dataverse.TablesClient.List.
func (c *TablesClient) List(ctx context.Context, params *dataverse.QueryParams) ([]dataverse.EntityMetadata, error) {
	return listEntityDefinitions(ctx, c.httpClient, params)
}

// Delete implements dataverse.TablesClient.Delete.
func (c *TablesClient) Delete(ctx context.Context, logicalName string) error {
	if logicalName == "" {
		return dataverse.ErrEntityNameRequired
	}

	_, err := c.httpClient.Delete(ctx, entityDefinitionPath(logicalName))
	if err != nil {
		return fmt.Errorf("deleting table: %w", err)
	}

	return nil
}

func entityDefinitionPath(logicalName string) string {
	return fmt.Sprintf("/EntityDefinitions(LogicalName='%s')", logicalName)
}

// listEntityDefinitions is shared between TablesClient.List and
// MetadataClient.Entities.
func listEntityDefinitions(ctx context.Context, httpClient *http.Client, params *dataverse.QueryParams) ([]dataverse.EntityMetadata, error) {
	var query url.Values
	if params != nil {
		query = params.ToValues()
	}

	resp, err := httpClient.Get(ctx, "/EntityDefinitions", query)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	var page struct {
		Value []dataverse.EntityMetadata `json:"value"`
	}

	err = json.Unmarshal(resp.Body, &page)
	if err != nil {
		return nil, fmt.Errorf("parsing entity metadata list: %w", err)
	}

	return page.Value, nil
}

// buildEntityDefinition expands a TableCreateRequest into the metadata
// payload EntityDefinitions expects, primary name column included.
func buildEntityDefinition(request *dataverse.TableCreateRequest) map[string]interface{} {
	languageCode := request.LanguageCode
	if languageCode == 0 {
		languageCode = constants.DefaultLanguageCode
	}

	ownership := request.OwnershipType
	if ownership == "" {
		ownership = "UserOwned"
	}

	displayName := request.DisplayName
	if displayName == "" {
		displayName = request.SchemaName
	}

	collectionName := request.DisplayCollectionName
	if collectionName == "" {
		collectionName = displayName + "s"
	}

	primarySchemaName := request.PrimaryNameSchemaName
	if primarySchemaName == "" {
		primarySchemaName = request.SchemaName + "_Name"
	}

	primaryDisplay := request.PrimaryNameDisplay
	if primaryDisplay == "" {
		primaryDisplay = "Name"
	}

	primaryMaxLength := request.PrimaryNameMaxLength
	if primaryMaxLength == 0 {
		primaryMaxLength = 100
	}

	entity := map[string]interface{}{
		"SchemaName":            request.SchemaName,
		"DisplayName":           dataverse.NewLabel(displayName, languageCode),
		"DisplayCollectionName": dataverse.NewLabel(collectionName, languageCode),
		"OwnershipType":         ownership,
		"HasNotes":              request.HasNotes,
		"HasActivities":         request.HasActivities,
		"Attributes": []map[string]interface{}{
			{
				"@odata.type":       "#Microsoft.Dynamics.CRM.StringAttributeMetadata",
				"AttributeType":     "String",
				"AttributeTypeName": map[string]string{"Value": "StringType"},
				"SchemaName":        primarySchemaName,
				"DisplayName":       dataverse.NewLabel(primaryDisplay, languageCode),
				"IsPrimaryName":     true,
				"MaxLength":         primaryMaxLength,
				"FormatName":        map[string]string{"Value": "Text"},
				"RequiredLevel":     map[string]string{"Value": "None"},
			},
		},
	}

	if request.Description != "" {
		entity["Description"] = dataverse.NewLabel(request.Description, languageCode)
	}

	return entity
}
