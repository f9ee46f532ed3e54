// Package dataverse provides types and client interfaces for the Microsoft
// Dataverse Web API (OData v4).
//
// The package defines the public surface of the client library: the Client
// interface and its per-resource sub-interfaces, request/response types for
// records and metadata operations, OData query parameters, the error
// taxonomy, and the paginated fetcher used for bulk record retrieval.
//
// Use github.com/davwright/XB-DataverseTools/pkg/dvclient to construct a
// working client:
//
//	client, err := dvclient.New(ctx, &dataverse.Config{
//	    APIEndpoint:  "https://myorg.crm.dynamics.com",
//	    TenantID:     "00000000-0000-0000-0000-000000000000",
//	    ClientID:     "app-id",
//	    ClientSecret: "app-secret",
//	})
//
// # Pagination
//
// Collection endpoints return results in bounded pages chained by an
// @odata.nextLink continuation URL. FetchAll follows the chain, retrying
// transient failures (429 and 5xx) with a per-page retry budget, and
// returns all records in server order. See Fetcher for details.
package dataverse
