// Package constants centralizes the magic numbers and shared defaults
// used across the client, CLI and auth layers.
package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// TokenHTTPTimeout is the timeout for OAuth token endpoint requests.
	TokenHTTPTimeout = 15 * time.Second

	// PacCommandTimeout bounds external pac CLI invocations.
	PacCommandTimeout = 60 * time.Second
)

// Retry defaults for single-shot requests. Bulk fetches carry their own
// per-page budget.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Web API defaults.
const (
	// DefaultAPIVersion is the Web API version segment used when the
	// configuration does not name one.
	DefaultAPIVersion = "v9.2"

	// APIPathPrefix is the path under the organization URL where the Web
	// API lives, joined with the version segment.
	APIPathPrefix = "/api/data/"

	// ODataVersion is sent as OData-Version and OData-MaxVersion on every
	// request.
	ODataVersion = "4.0"
)

// OAuth defaults.
const (
	// TokenEndpointFormat builds the Azure AD v2 token endpoint from a
	// tenant ID.
	TokenEndpointFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"

	// TokenExpirationBuffer is subtracted from a token's lifetime so it is
	// refreshed before it actually expires.
	TokenExpirationBuffer = 30 * time.Second
)

// Fetch defaults for bulk record retrieval.
const (
	// DefaultFetchRetries is the per-page transient retry budget used when
	// the caller does not set one.
	DefaultFetchRetries = 3
)

// Label defaults.
const (
	// DefaultLanguageCode is English (US), the language code metadata
	// labels default to.
	DefaultLanguageCode = 1033
)

// Display and output constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for tabular output format.
	FormatTable = "table"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)
