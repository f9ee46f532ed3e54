package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/internal/http"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// OptionSetsClient implements dataverse.OptionSetsClient against the
// GlobalOptionSetDefinitions metadata endpoint.
type OptionSetsClient struct {
	httpClient *http.Client
}

// NewOptionSetsClient creates an option sets client.
func NewOptionSetsClient(httpClient *http.Client) *OptionSetsClient {
	return &OptionSetsClient{httpClient: httpClient}
}

// Create implements dataverse.OptionSetsClient.Create.
func (c *OptionSetsClient) Create(ctx context.Context, request *dataverse.OptionSetCreateRequest) error {
	if request == nil || request.Name == "" {
		return dataverse.ErrOptionSetNameRequired
	}

	languageCode := request.LanguageCode
	if languageCode == 0 {
		languageCode = constants.DefaultLanguageCode
	}

	displayName := request.DisplayName
	if displayName == "" {
		displayName = request.Name
	}

	payload := map[string]interface{}{
		"@odata.type":   "#Microsoft.Dynamics.CRM.OptionSetMetadata",
		"Name":          request.Name,
		"DisplayName":   dataverse.NewLabel(displayName, languageCode),
		"IsGlobal":      true,
		"OptionSetType": "Picklist",
		"Options":       request.Options,
	}

	if request.Description != "" {
		payload["Description"] = dataverse.NewLabel(request.Description, languageCode)
	}

	_, err := c.httpClient.Post(ctx, "/GlobalOptionSetDefinitions", payload)
	if err != nil {
		return fmt.Errorf("creating option set: %w", err)
	}

	return nil
}

// Get implements dataverse.OptionSetsClient.Get.
func (c *OptionSetsClient) Get(ctx context.Context, name string) (*dataverse.OptionSetMetadata, error) {
	if name == "" {
		return nil, dataverse.ErrOptionSetNameRequired
	}

	resp, err := c.httpClient.Get(ctx, optionSetPath(name), nil)
	if err != nil {
		return nil, fmt.Errorf("getting option set: %w", err)
	}

	var optionSet dataverse.OptionSetMetadata

	err = json.Unmarshal(resp.Body, &optionSet)
	if err != nil {
		return nil, fmt.Errorf("parsing option set metadata: %w", err)
	}

	return &optionSet, nil
}

// Delete implements dataverse.OptionSetsClient.Delete.
func (c *OptionSetsClient) Delete(ctx context.Context, name string) error {
	if name == "" {
		return dataverse.ErrOptionSetNameRequired
	}

	_, err := c.httpClient.Delete(ctx, optionSetPath(name))
	if err != nil {
		return fmt.Errorf("deleting option set: %w", err)
	}

	return nil
}

func optionSetPath(name string) string {
	return fmt.Sprintf("/GlobalOptionSetDefinitions(Name='%s')", name)
}
