package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/internal/http"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// ColumnsClient implements dataverse.ColumnsClient. All column kinds go
// through one parameterized builder; the kind selects the @odata.type of
// the attribute metadata payload.
type ColumnsClient struct {
	httpClient *http.Client
}

var (
	ErrUnsupportedColumnKind = errors.New("unsupported column kind")
	ErrLookupTargetRequired  = errors.New("lookup columns require at least one target table")
	ErrChoiceOptionsRequired = errors.New("choice columns require options or a global option set name")
)

// NewColumnsClient creates a columns client.
func NewColumnsClient(httpClient *http.Client) *ColumnsClient {
	return &ColumnsClient{httpClient: httpClient}
}

// Create implements dataverse.ColumnsClient.Create. Plain attribute
// kinds POST to the table's Attributes collection; lookups create a
// one-to-many relationship carrying the lookup attribute; polymorphic
// lookups go through the CreatePolymorphicLookupAttribute action.
func (c *ColumnsClient) Create(ctx context.Context, entityLogicalName string, request *dataverse.ColumnCreateRequest) error {
	if entityLogicalName == "" {
		return dataverse.ErrEntityNameRequired
	}

	if request == nil || request.SchemaName == "" {
		return dataverse.ErrSchemaNameRequired
	}

	switch request.Kind {
	case dataverse.ColumnLookup:
		return c.createLookup(ctx, entityLogicalName, request)
	case dataverse.ColumnPolymorphic:
		return c.createPolymorphicLookup(ctx, entityLogicalName, request)
	default:
		return c.createAttribute(ctx, entityLogicalName, request)
	}
}

// Delete implements dataverse.ColumnsClient.Delete.
func (c *ColumnsClient) Delete(ctx context.Context, entityLogicalName, logicalName string) error {
	if entityLogicalName == "" {
		return dataverse.ErrEntityNameRequired
	}

	if logicalName == "" {
		return dataverse.ErrSchemaNameRequired
	}

	path := fmt.Sprintf("%s/Attributes(LogicalName='%s')",
		entityDefinitionPath(entityLogicalName), logicalName)

	_, err := c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting column: %w", err)
	}

	return nil
}

func (c *ColumnsClient) createAttribute(ctx context.Context, entityLogicalName string, request *dataverse.ColumnCreateRequest) error {
	payload, err := buildAttributePayload(request)
	if err != nil {
		return err
	}

	path := entityDefinitionPath(entityLogicalName) + "/Attributes"

	_, err = c.httpClient.Post(ctx, path, payload)
	if err != nil {
		return fmt.Errorf("creating %s column: %w", request.Kind, err)
	}

	return nil
}

func (c *ColumnsClient) createLookup(ctx context.Context, entityLogicalName string, request *dataverse.ColumnCreateRequest) error {
	if len(request.Targets) == 0 {
		return ErrLookupTargetRequired
	}

	target := request.Targets[0]
	payload := map[string]interface{}{
		"@odata.type":       "#Microsoft.Dynamics.CRM.OneToManyRelationshipMetadata",
		"SchemaName":        fmt.Sprintf("%s_%s_%s", target, entityLogicalName, request.SchemaName),
		"ReferencedEntity":  target,
		"ReferencingEntity": entityLogicalName,
		"Lookup": map[string]interface{}{
			"@odata.type":   "#Microsoft.Dynamics.CRM.LookupAttributeMetadata",
			"SchemaName":    request.SchemaName,
			"DisplayName":   columnLabel(request),
			"RequiredLevel": requiredLevel(request),
		},
	}

	_, err := c.httpClient.Post(ctx, "/RelationshipDefinitions", payload)
	if err != nil {
		return fmt.Errorf("creating lookup column: %w", err)
	}

	return nil
}

func (c *ColumnsClient) createPolymorphicLookup(ctx context.Context, entityLogicalName string, request *dataverse.ColumnCreateRequest) error {
	if len(request.Targets) == 0 {
		return ErrLookupTargetRequired
	}

	relationships := make([]map[string]interface{}, 0, len(request.Targets))
	for _, target := range request.Targets {
		relationships = append(relationships, map[string]interface{}{
			"SchemaName":        fmt.Sprintf("%s_%s_%s", target, entityLogicalName, request.SchemaName),
			"ReferencedEntity":  target,
			"ReferencingEntity": entityLogicalName,
		})
	}

	payload := map[string]interface{}{
		"OneToManyRelationships": relationships,
		"Lookup": map[string]interface{}{
			"SchemaName":    request.SchemaName,
			"DisplayName":   columnLabel(request),
			"RequiredLevel": requiredLevel(request),
		},
	}

	_, err := c.httpClient.Post(ctx, "/CreatePolymorphicLookupAttribute", payload)
	if err != nil {
		return fmt.Errorf("creating polymorphic lookup column: %w", err)
	}

	return nil
}

// buildAttributePayload produces the kind-discriminated attribute
// metadata for plain (non-relationship) column kinds.
func buildAttributePayload(request *dataverse.ColumnCreateRequest) (map[string]interface{}, error) {
	payload := map[string]interface{}{
		"SchemaName":    request.SchemaName,
		"DisplayName":   columnLabel(request),
		"RequiredLevel": requiredLevel(request),
	}

	if request.Description != "" {
		payload["Description"] = dataverse.NewLabel(request.Description, languageCode(request))
	}

	switch request.Kind {
	case dataverse.ColumnText:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.StringAttributeMetadata"
		payload["FormatName"] = map[string]string{"Value": "Text"}
		payload["MaxLength"] = defaultInt(request.MaxLength, 100)

	case dataverse.ColumnMemo:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.MemoAttributeMetadata"
		payload["MaxLength"] = defaultInt(request.MaxLength, 2000)

	case dataverse.ColumnInteger:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.IntegerAttributeMetadata"
		payload["Format"] = "None"
		addRange(payload, request)

	case dataverse.ColumnDecimal:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.DecimalAttributeMetadata"
		payload["Precision"] = defaultInt(request.Precision, 2)
		addRange(payload, request)

	case dataverse.ColumnMoney:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.MoneyAttributeMetadata"
		payload["Precision"] = defaultInt(request.Precision, 2)
		addRange(payload, request)

	case dataverse.ColumnBoolean:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.BooleanAttributeMetadata"
		payload["OptionSet"] = map[string]interface{}{
			"@odata.type": "#Microsoft.Dynamics.CRM.BooleanOptionSetMetadata",
			"TrueOption": map[string]interface{}{
				"Value": 1,
				"Label": dataverse.NewLabel("Yes", languageCode(request)),
			},
			"FalseOption": map[string]interface{}{
				"Value": 0,
				"Label": dataverse.NewLabel("No", languageCode(request)),
			},
		}

	case dataverse.ColumnDateTime:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.DateTimeAttributeMetadata"
		payload["Format"] = defaultString(request.Format, "DateAndTime")

	case dataverse.ColumnChoice:
		payload["@odata.type"] = "#Microsoft.Dynamics.CRM.PicklistAttributeMetadata"

		err := addChoiceOptionSet(payload, request)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedColumnKind, request.Kind)
	}

	return payload, nil
}

func addChoiceOptionSet(payload map[string]interface{}, request *dataverse.ColumnCreateRequest) error {
	if request.GlobalOptionSetName != "" {
		payload["GlobalOptionSet@odata.bind"] = fmt.Sprintf(
			"/GlobalOptionSetDefinitions(Name='%s')", request.GlobalOptionSetName)

		return nil
	}

	if len(request.Options) == 0 {
		return ErrChoiceOptionsRequired
	}

	payload["OptionSet"] = map[string]interface{}{
		"@odata.type":   "#Microsoft.Dynamics.CRM.OptionSetMetadata",
		"IsGlobal":      false,
		"OptionSetType": "Picklist",
		"Options":       request.Options,
	}

	return nil
}

func addRange(payload map[string]interface{}, request *dataverse.ColumnCreateRequest) {
	if request.MinValue != 0 || request.MaxValue != 0 {
		payload["MinValue"] = request.MinValue
		payload["MaxValue"] = request.MaxValue
	}
}

func columnLabel(request *dataverse.ColumnCreateRequest) dataverse.Label {
	displayName := request.DisplayName
	if displayName == "" {
		displayName = request.SchemaName
	}

	return dataverse.NewLabel(displayName, languageCode(request))
}

func requiredLevel(request *dataverse.ColumnCreateRequest) map[string]string {
	value := "None"
	if request.Required {
		value = "ApplicationRequired"
	}

	return map[string]string{"Value": value}
}

func languageCode(request *dataverse.ColumnCreateRequest) int {
	if request.LanguageCode != 0 {
		return request.LanguageCode
	}

	return constants.DefaultLanguageCode
}

func defaultInt(value, fallback int) int {
	if value != 0 {
		return value
	}

	return fallback
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}

	return fallback
}
