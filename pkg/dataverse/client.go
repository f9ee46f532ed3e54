package dataverse

import (
	"context"
	"encoding/json"
	"time"
)

// RecordsClient provides access to table rows.
type RecordsClient interface {
	// Create inserts a row into the named collection and returns the
	// created representation.
	Create(ctx context.Context, collection string, record Record) (Record, error)
	// Get retrieves a single row by its primary key.
	Get(ctx context.Context, collection, id string, params *QueryParams) (Record, error)
	// Update applies a partial update to a row.
	Update(ctx context.Context, collection, id string, record Record) (Record, error)
	// Delete removes a row.
	Delete(ctx context.Context, collection, id string) error
	// List retrieves a single page of rows.
	List(ctx context.Context, collection string, params *QueryParams) (*CollectionResponse, error)
	// ListAll retrieves every row in the collection, following continuation
	// links and retrying transient failures. See FetchAll.
	ListAll(ctx context.Context, collection string, params *QueryParams, opts *FetchOptions) (*FetchResult, error)
}

// TablesClient provides access to entity definitions.
type TablesClient interface {
	Create(ctx context.Context, request *TableCreateRequest) error
	Get(ctx context.Context, logicalName string, expandAttributes bool) (*EntityMetadata, error)
	List(ctx context.Context, params *QueryParams) ([]EntityMetadata, error)
	Delete(ctx context.Context, logicalName string) error
}

// ColumnsClient provides access to attribute definitions.
type ColumnsClient interface {
	Create(ctx context.Context, entityLogicalName string, request *ColumnCreateRequest) error
	Delete(ctx context.Context, entityLogicalName, logicalName string) error
}

// OptionSetsClient provides access to global option sets.
type OptionSetsClient interface {
	Create(ctx context.Context, request *OptionSetCreateRequest) error
	Get(ctx context.Context, name string) (*OptionSetMetadata, error)
	Delete(ctx context.Context, name string) error
}

// MetadataClient provides read access to organization metadata.
type MetadataClient interface {
	WhoAmI(ctx context.Context) (*WhoAmIResponse, error)
	Entity(ctx context.Context, logicalName string) (*EntityMetadata, error)
	Entities(ctx context.Context, params *QueryParams) ([]EntityMetadata, error)
}

// Client is the full Dataverse Web API client surface.
type Client interface {
	Records() RecordsClient
	Tables() TablesClient
	Columns() ColumnsClient
	OptionSets() OptionSetsClient
	Metadata() MetadataClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a dataverse.Client.
//
// # Authentication precedence
//
//  1. AccessToken: if set, used directly as a static Bearer token.
//  2. AccessToken + ClientID/ClientSecret: token is tried first; on 401
//     the client falls back to the client-credentials grant.
//  3. ClientID/ClientSecret: OAuth2 client_credentials grant against the
//     Azure AD token endpoint for TenantID.
//  4. No credentials: requests are sent without authentication (only
//     useful against mock servers).
//
// # Token endpoint
//
// If TokenURL is empty and OAuth authentication is required, dvclient.New
// derives it from TenantID as
// "https://login.microsoftonline.com/<tenant>/oauth2/v2.0/token", with the
// scope "<endpoint>/.default".
type Config struct {
	// APIEndpoint: organization URL (e.g. "https://myorg.crm.dynamics.com").
	// dvclient.New normalizes it by trimming a trailing slash and adding
	// "https://" when no scheme is present.
	APIEndpoint string

	// TenantID: Azure AD tenant for the client-credentials grant.
	TenantID string
	// ClientID: application (client) ID registered in Azure AD.
	ClientID string
	// ClientSecret: client secret used with ClientID.
	ClientSecret string
	// AccessToken: if set, used directly as a Bearer token.
	AccessToken string
	// TokenURL: full OAuth2 token endpoint; derived from TenantID if empty.
	TokenURL string

	// APIVersion: Web API version segment; defaults to "v9.2".
	APIVersion string

	// HTTPTimeout: optional default HTTP timeout where supported. Most
	// calls should rely on context timeouts.
	HTTPTimeout time.Duration
	// RetryMax: maximum retries for transient failures on single-shot
	// calls (429/5xx/connection errors). 0 leaves the default.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger
	// is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
}

// UnmarshalRecords decodes raw fetched records into Record maps,
// preserving order.
func UnmarshalRecords(raw []json.RawMessage) ([]Record, error) {
	records := make([]Record, 0, len(raw))

	for _, data := range raw {
		var record Record

		err := json.Unmarshal(data, &record)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

// TableCreateRequest describes a table to provision.
type TableCreateRequest struct {
	SchemaName            string
	DisplayName           string
	DisplayCollectionName string
	Description           string
	OwnershipType         string
	HasNotes              bool
	HasActivities         bool
	PrimaryNameSchemaName string
	PrimaryNameDisplay    string
	PrimaryNameMaxLength  int
	LanguageCode          int
}

// ColumnKind discriminates the attribute metadata variants the Web API
// accepts. One parameterized create path covers all kinds.
type ColumnKind string

// Column kinds supported by ColumnsClient.Create.
const (
	ColumnText        ColumnKind = "text"
	ColumnMemo        ColumnKind = "memo"
	ColumnInteger     ColumnKind = "integer"
	ColumnDecimal     ColumnKind = "decimal"
	ColumnMoney       ColumnKind = "money"
	ColumnBoolean     ColumnKind = "boolean"
	ColumnDateTime    ColumnKind = "datetime"
	ColumnChoice      ColumnKind = "choice"
	ColumnLookup      ColumnKind = "lookup"
	ColumnPolymorphic ColumnKind = "polymorphic"
)

// ColumnCreateRequest describes a column to provision on a table.
type ColumnCreateRequest struct {
	Kind        ColumnKind
	SchemaName  string
	DisplayName string
	Description string
	Required    bool
	// MaxLength applies to text and memo columns.
	MaxLength int
	// Precision applies to decimal and money columns.
	Precision int
	// MinValue/MaxValue apply to integer, decimal and money columns.
	MinValue float64
	MaxValue float64
	// Format applies to datetime columns: "DateOnly" or "DateAndTime".
	Format string
	// Options apply to choice columns; GlobalOptionSetName references an
	// existing global option set instead.
	Options             []OptionMetadata
	GlobalOptionSetName string
	// Targets name the referenced tables for lookup and polymorphic
	// columns (a single target for plain lookups).
	Targets []string
	// LanguageCode for labels; defaults to 1033.
	LanguageCode int
}

// OptionSetCreateRequest describes a global option set to provision.
type OptionSetCreateRequest struct {
	Name         string
	DisplayName  string
	Description  string
	Options      []OptionMetadata
	LanguageCode int
}
