package dataverse

import "encoding/json"

// Record is a single Dataverse row as returned by the Web API. Attribute
// values are kept as decoded JSON; callers pick out the columns they need.
type Record map[string]interface{}

// ID returns the record's primary key when the payload carries one under
// the conventional <entity>id attribute name, or the empty string.
func (r Record) ID(entityLogicalName string) string {
	if v, ok := r[entityLogicalName+"id"].(string); ok {
		return v
	}

	return ""
}

// CollectionResponse is the OData collection shape returned by list
// endpoints: a value array plus an optional continuation link.
type CollectionResponse struct {
	Context  string            `json:"@odata.context,omitempty"`
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink,omitempty"`
}

// Label is a localized label used throughout the metadata endpoints.
type Label struct {
	LocalizedLabels []LocalizedLabel `json:"LocalizedLabels"`
}

// LocalizedLabel is one language variant of a Label.
type LocalizedLabel struct {
	Label        string `json:"Label"`
	LanguageCode int    `json:"LanguageCode"`
}

// NewLabel builds a single-language label. 1033 is English (US), the
// language code the provisioning endpoints default to.
func NewLabel(text string, languageCode int) Label {
	return Label{
		LocalizedLabels: []LocalizedLabel{
			{Label: text, LanguageCode: languageCode},
		},
	}
}

// EntityMetadata describes a Dataverse table (entity definition).
type EntityMetadata struct {
	MetadataID            string              `json:"MetadataId,omitempty"`
	LogicalName           string              `json:"LogicalName,omitempty"`
	SchemaName            string              `json:"SchemaName"`
	EntitySetName         string              `json:"EntitySetName,omitempty"`
	DisplayName           *Label              `json:"DisplayName,omitempty"`
	DisplayCollectionName *Label              `json:"DisplayCollectionName,omitempty"`
	Description           *Label              `json:"Description,omitempty"`
	OwnershipType         string              `json:"OwnershipType,omitempty"`
	IsActivity            bool                `json:"IsActivity,omitempty"`
	HasNotes              bool                `json:"HasNotes,omitempty"`
	HasActivities         bool                `json:"HasActivities,omitempty"`
	PrimaryNameAttribute  string              `json:"PrimaryNameAttribute,omitempty"`
	Attributes            []AttributeMetadata `json:"Attributes,omitempty"`
}

// AttributeMetadata describes a table column. Only the fields common to
// every attribute kind are modeled; kind-specific payloads are built by
// the column builder in the concrete client.
type AttributeMetadata struct {
	ODataType     string         `json:"@odata.type,omitempty"`
	MetadataID    string         `json:"MetadataId,omitempty"`
	LogicalName   string         `json:"LogicalName,omitempty"`
	SchemaName    string         `json:"SchemaName"`
	DisplayName   *Label         `json:"DisplayName,omitempty"`
	Description   *Label         `json:"Description,omitempty"`
	RequiredLevel *RequiredLevel `json:"RequiredLevel,omitempty"`
	AttributeType string         `json:"AttributeType,omitempty"`
	IsPrimaryName bool           `json:"IsPrimaryName,omitempty"`
	MaxLength     int            `json:"MaxLength,omitempty"`
}

// RequiredLevel is the managed-property wrapper around a column's
// requirement setting (None, ApplicationRequired, Recommended).
type RequiredLevel struct {
	Value string `json:"Value"`
}

// OptionSetMetadata describes a global option set (choice list).
type OptionSetMetadata struct {
	ODataType     string           `json:"@odata.type,omitempty"`
	MetadataID    string           `json:"MetadataId,omitempty"`
	Name          string           `json:"Name"`
	DisplayName   *Label           `json:"DisplayName,omitempty"`
	Description   *Label           `json:"Description,omitempty"`
	IsGlobal      bool             `json:"IsGlobal,omitempty"`
	OptionSetType string           `json:"OptionSetType,omitempty"`
	Options       []OptionMetadata `json:"Options,omitempty"`
}

// OptionMetadata is one entry in an option set.
type OptionMetadata struct {
	Value int    `json:"Value"`
	Label *Label `json:"Label,omitempty"`
}

// WhoAmIResponse is the result of the WhoAmI function.
type WhoAmIResponse struct {
	UserID         string `json:"UserId"`
	BusinessUnitID string `json:"BusinessUnitId"`
	OrganizationID string `json:"OrganizationId"`
}

// Environment is one Power Platform environment as reported by the pac
// CLI (`pac admin list --json`).
type Environment struct {
	DisplayName    string `json:"DisplayName"`
	EnvironmentID  string `json:"EnvironmentId"`
	EnvironmentURL string `json:"EnvironmentUrl"`
	Type           string `json:"Type"`
	OrganizationID string `json:"OrganizationId"`
}
